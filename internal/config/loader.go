package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSpeechProviders lists the speech engine names the binary ships.
var ValidSpeechProviders = []string{"voicevox", "elevenlabs", "gtts"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}

	switch {
	case cfg.Speech.Name == "":
		errs = append(errs, fmt.Errorf("speech.name is required; valid values: %v", ValidSpeechProviders))
	case !slices.Contains(ValidSpeechProviders, cfg.Speech.Name):
		errs = append(errs, fmt.Errorf("speech.name %q is unknown; valid values: %v", cfg.Speech.Name, ValidSpeechProviders))
	}
	if cfg.Speech.Name == "elevenlabs" && cfg.Speech.APIKey == "" {
		errs = append(errs, errors.New("speech.api_key is required when speech.name is elevenlabs"))
	}
	if cfg.Speech.SynthesisTimeout < 0 {
		errs = append(errs, fmt.Errorf("speech.synthesis_timeout %v must not be negative", cfg.Speech.SynthesisTimeout.Std()))
	}

	if cfg.Reading.DefaultSpeaker < 0 {
		errs = append(errs, fmt.Errorf("reading.default_speaker %d must not be negative", cfg.Reading.DefaultSpeaker))
	}
	if cfg.Reading.NamePrefix != "" && !cfg.Reading.NamePrefix.IsValid() {
		errs = append(errs, fmt.Errorf("reading.name_prefix %q is invalid; valid values: always, on_change", cfg.Reading.NamePrefix))
	}

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}
