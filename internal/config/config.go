// Package config provides the configuration schema and loader for the
// yomu read-aloud bot.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "45s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// NamePrefixMode controls when the author's name is read before a message.
type NamePrefixMode string

const (
	// PrefixModeAlways reads the author name before every message.
	PrefixModeAlways NamePrefixMode = "always"

	// PrefixModeOnChange reads the name only when the author changed
	// since the previous message.
	PrefixModeOnChange NamePrefixMode = "on_change"
)

// IsValid reports whether m is a recognised prefix mode.
func (m NamePrefixMode) IsValid() bool {
	return m == PrefixModeAlways || m == PrefixModeOnChange
}

// Config is the root configuration structure for yomu.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Discord Discord       `yaml:"discord"`
	Speech  ProviderEntry `yaml:"speech"`
	Reading Reading       `yaml:"reading"`
	Server  Server        `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
}

// Discord holds the bot's gateway settings.
type Discord struct {
	// Token is the bot token. Required.
	Token string `yaml:"token"`

	// GuildID restricts slash command registration to one guild.
	// Empty registers commands globally.
	GuildID string `yaml:"guild_id"`
}

// ProviderEntry selects and configures the speech synthesis engine.
type ProviderEntry struct {
	// Name selects the engine implementation: "voicevox", "elevenlabs"
	// or "gtts".
	Name string `yaml:"name"`

	// BaseURL overrides the engine's default endpoint. Used by voicevox
	// (default http://localhost:50021).
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the engine's API. Required for
	// elevenlabs.
	APIKey string `yaml:"api_key"`

	// Model selects a specific model within the engine, if it has any.
	Model string `yaml:"model"`

	// SynthesisTimeout bounds a single synthesis call. Zero means the
	// built-in default of 30s.
	SynthesisTimeout Duration `yaml:"synthesis_timeout"`
}

// Reading holds read-aloud behaviour settings.
type Reading struct {
	// DefaultSpeaker is the speaker id used for guilds without a stored
	// preference. Zero means speaker 1.
	DefaultSpeaker int `yaml:"default_speaker"`

	// NamePrefix controls when the author name is spoken.
	// Empty means "always".
	NamePrefix NamePrefixMode `yaml:"name_prefix"`
}

// Server holds network and logging settings.
type Server struct {
	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on. Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// StoreConfig holds preference persistence settings.
type StoreConfig struct {
	// Dir is the directory holding the preference JSON files.
	// Empty means "./data".
	Dir string `yaml:"dir"`
}
