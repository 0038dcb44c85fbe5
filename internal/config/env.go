package config

import (
	"os"
	"strconv"
	"strings"
)

// loadFromEnv overrides config from environment variables.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	mark := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}
	setString := func(field string, target *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*target = v
				mark(field)
				return
			}
		}
	}
	setInt := func(field string, target *int, key string) {
		if v := os.Getenv(key); v != "" {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*target = i
				mark(field)
			}
		}
	}
	setBool := func(field string, target *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*target = boolFromString(v)
			mark(field)
		}
	}

	// ASTROTASK_* wins over the provider variables.
	setString("api_url", &cfg.APIURL, "ASTROTASK_API_URL", "DEEPSEEK_BASE_URL")
	setString("api_key", &cfg.APIKey, "ASTROTASK_API_KEY", "DEEPSEEK_API_KEY")
	setString("model", &cfg.Model, "ASTROTASK_MODEL")
	setInt("max_tokens", &cfg.MaxTokens, "ASTROTASK_MAX_TOKENS")
	if v := os.Getenv("ASTROTASK_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.Temperature = f
			mark("temperature")
		}
	}
	setInt("request_timeout_seconds", &cfg.RequestTimeoutSeconds, "ASTROTASK_REQUEST_TIMEOUT")
	setBool("demo", &cfg.Demo, "ASTROTASK_DEMO")
	setInt("demo_delay_ms", &cfg.DemoDelayMS, "ASTROTASK_DEMO_DELAY_MS")
	setString("prompt_file", &cfg.PromptFile, "ASTROTASK_PROMPT_FILE")
	setString("timezone", &cfg.Timezone, "ASTROTASK_TIMEZONE")
	setString("listen_addr", &cfg.ListenAddr, "ASTROTASK_LISTEN_ADDR")
	setString("log_dir", &cfg.LogDir, "ASTROTASK_LOG_DIR")
	setBool("transcript", &cfg.Transcript, "ASTROTASK_TRANSCRIPT")

	// Logging configuration
	setString("log_level", &cfg.LogLevel, "ASTROTASK_LOG_LEVEL")
	setString("log_format", &cfg.LogFormat, "ASTROTASK_LOG_FORMAT")
	setBool("log_timestamps", &cfg.LogTimestamps, "ASTROTASK_LOG_TIMESTAMPS")
	setBool("log_caller", &cfg.LogCaller, "ASTROTASK_LOG_CALLER")
}

// boolFromString treats 1, true, yes and on as true.
func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
