package config

import (
	"os"
	"path/filepath"
)

const appName = "astrotask"

// findProjectConfigFile returns astrotask.toml or .astrotask.toml from the
// working directory.
func findProjectConfigFile() string {
	for _, name := range []string{appName + ".toml", "." + appName + ".toml"} {
		if fileExists(name) {
			return name
		}
	}
	return ""
}

// findUserConfigFile prefers ~/.astrotask/astrotask.toml and falls back to
// <os.UserConfigDir>/astrotask/astrotask.toml.
func findUserConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+appName, appName+".toml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, appName, appName+".toml"))
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.APIURL = DefaultAPIURL
	cfg.Model = DefaultModel
	cfg.MaxTokens = DefaultMaxTokens
	cfg.Temperature = DefaultTemperature
	cfg.RequestTimeoutSeconds = DefaultRequestTimeout
	cfg.DemoDelayMS = DefaultDemoDelayMS
	cfg.ListenAddr = DefaultListenAddr
	cfg.LogDir = DefaultLogDir
	cfg.Transcript = true
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"api_url",
		"api_key",
		"model",
		"max_tokens",
		"temperature",
		"request_timeout_seconds",
		"demo",
		"demo_delay_ms",
		"prompt_file",
		"timezone",
		"listen_addr",
		"log_dir",
		"transcript",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}
