package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# astrotask configuration file
# Values can be overridden by environment variables (ASTROTASK_*) or CLI flags

# OpenAI-compatible chat endpoint
api_url = "https://api.deepseek.com/v1"
# api_key = ""            # or ASTROTASK_API_KEY / DEEPSEEK_API_KEY
model = "deepseek-chat"
max_tokens = 2048
temperature = 0.8

# Seconds to wait for one reply (0 waits forever)
request_timeout_seconds = 60

# Offline assistant; always on when no api_key is set
demo = false
demo_delay_ms = 1500

# System prompt template override (text/template)
# prompt_file = "~/.astrotask/system.tmpl"

# IANA time zone for due dates and the calendar (default: local)
# timezone = "Europe/Zagreb"

# HTTP API address for "astrotask serve"
listen_addr = "127.0.0.1:8080"

# Session transcripts (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.astrotask/logs"
transcript = true

# Console logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = false
log_caller = false
`
}
