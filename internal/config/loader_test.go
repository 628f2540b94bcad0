package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
discord:
  token: "bot-token"
speech:
  name: voicevox
  base_url: http://localhost:50021
  synthesis_timeout: 45s
reading:
  default_speaker: 3
  name_prefix: on_change
server:
  metrics_addr: ":9090"
  log_level: debug
store:
  dir: /var/lib/yomu
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader returned error: %v", err)
	}

	if cfg.Discord.Token != "bot-token" {
		t.Errorf("Discord.Token = %q", cfg.Discord.Token)
	}
	if cfg.Speech.Name != "voicevox" || cfg.Speech.BaseURL != "http://localhost:50021" {
		t.Errorf("Speech = %+v", cfg.Speech)
	}
	if cfg.Speech.SynthesisTimeout.Std() != 45*time.Second {
		t.Errorf("SynthesisTimeout = %v, want 45s", cfg.Speech.SynthesisTimeout.Std())
	}
	if cfg.Reading.DefaultSpeaker != 3 || cfg.Reading.NamePrefix != PrefixModeOnChange {
		t.Errorf("Reading = %+v", cfg.Reading)
	}
	if cfg.Server.MetricsAddr != ":9090" || cfg.Server.LogLevel != LogDebug {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Store.Dir != "/var/lib/yomu" {
		t.Errorf("Store.Dir = %q", cfg.Store.Dir)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	t.Parallel()

	yaml := `
discord:
  token: "t"
speech:
  name: gtts
bogus_field: true
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown top-level field did not fail")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid minimal",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: "discord.token",
		},
		{
			name:    "missing provider",
			mutate:  func(c *Config) { c.Speech.Name = "" },
			wantErr: "speech.name",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Speech.Name = "espeak" },
			wantErr: "speech.name",
		},
		{
			name:    "elevenlabs without key",
			mutate:  func(c *Config) { c.Speech.Name = "elevenlabs"; c.Speech.APIKey = "" },
			wantErr: "speech.api_key",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Speech.SynthesisTimeout = Duration(-time.Second) },
			wantErr: "synthesis_timeout",
		},
		{
			name:    "negative speaker",
			mutate:  func(c *Config) { c.Reading.DefaultSpeaker = -1 },
			wantErr: "default_speaker",
		},
		{
			name:    "bad prefix mode",
			mutate:  func(c *Config) { c.Reading.NamePrefix = "sometimes" },
			wantErr: "name_prefix",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "loud" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{
				Discord: Discord{Token: "t"},
				Speech:  ProviderEntry{Name: "voicevox"},
			}
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{})
	if err == nil {
		t.Fatal("empty config validated")
	}
	for _, want := range []string{"discord.token", "speech.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}
