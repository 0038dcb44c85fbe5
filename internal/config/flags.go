package config

import (
	"flag"
)

// parseFlags defines and parses CLI flags bound directly to cfg, so flags
// that are not given keep the value from lower layers.
// If sources is non-nil, it tracks which flags were set.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet(appName, flag.ContinueOnError)
	}

	// Chat endpoint
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Chat completion base URL")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key (prefer ASTROTASK_API_KEY)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name")
	fs.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Maximum tokens per reply")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	fs.IntVar(&cfg.RequestTimeoutSeconds, "timeout", cfg.RequestTimeoutSeconds, "Request timeout in seconds (0 disables)")

	// Offline mode
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Use the offline demo assistant")
	fs.IntVar(&cfg.DemoDelayMS, "demo-delay-ms", cfg.DemoDelayMS, "Demo reply delay in milliseconds")

	// Prompt and time
	fs.StringVar(&cfg.PromptFile, "prompt-file", cfg.PromptFile, "System prompt template override")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA time zone for due dates")

	// HTTP API
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address for serve")

	// Transcripts
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Transcript directory")
	fs.BoolVar(&cfg.Transcript, "transcript", cfg.Transcript, "Write session transcripts")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if sources == nil {
		return nil
	}
	flagToSource := map[string]string{
		"api-url":        "api_url",
		"api-key":        "api_key",
		"model":          "model",
		"max-tokens":     "max_tokens",
		"temperature":    "temperature",
		"timeout":        "request_timeout_seconds",
		"demo":           "demo",
		"demo-delay-ms":  "demo_delay_ms",
		"prompt-file":    "prompt_file",
		"timezone":       "timezone",
		"listen":         "listen_addr",
		"log-dir":        "log_dir",
		"transcript":     "transcript",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"log-timestamps": "log_timestamps",
		"log-caller":     "log_caller",
	}
	fs.Visit(func(f *flag.Flag) {
		if fieldName, ok := flagToSource[f.Name]; ok {
			sources[fieldName] = SourceFlag
		}
	})
	return nil
}
