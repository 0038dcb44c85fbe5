package config

import (
	"time"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, in load order.
	Files []string
}

// Default values.
const (
	DefaultAPIURL         = "https://api.deepseek.com/v1"
	DefaultModel          = "deepseek-chat"
	DefaultMaxTokens      = 2048
	DefaultTemperature    = 0.8
	DefaultRequestTimeout = 60
	DefaultDemoDelayMS    = 1500
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultLogDir         = "~/.astrotask/logs"
)

// Config holds the full configuration for astrotask.
type Config struct {
	// Chat endpoint
	APIURL      string  `toml:"api_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`

	// RequestTimeoutSeconds bounds one completion call; 0 disables it.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// Offline mode
	Demo        bool `toml:"demo"`
	DemoDelayMS int  `toml:"demo_delay_ms"`

	// PromptFile replaces the bundled system instruction template.
	PromptFile string `toml:"prompt_file"`

	// Timezone is an IANA name used for due dates and the calendar.
	// Empty means the local zone.
	Timezone string `toml:"timezone"`

	// HTTP API
	ListenAddr string `toml:"listen_addr"`

	// Transcripts
	LogDir     string `toml:"log_dir"`
	Transcript bool   `toml:"transcript"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	location *time.Location
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// DemoDelay returns the demo reply delay as a duration.
func (c *Config) DemoDelay() time.Duration {
	if c.DemoDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.DemoDelayMS) * time.Millisecond
}

// Location returns the configured time zone, time.Local when unset.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.Local
}

// Redacted returns a copy with the API key masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = redact(out.APIKey)
	}
	return out
}

func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}
