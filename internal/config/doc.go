// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.astrotask/astrotask.toml or OS-specific config directory)
// 3. Project config file (astrotask.toml or .astrotask.toml in the current directory)
// 4. Environment variables (ASTROTASK_*, with DEEPSEEK_API_KEY and DEEPSEEK_BASE_URL as fallbacks)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.astrotask/astrotask.toml (preferred)
// - Windows: %APPDATA%\astrotask\astrotask.toml
// - macOS: ~/Library/Application Support/astrotask/astrotask.toml
// - Linux/BSD: $XDG_CONFIG_HOME/astrotask/astrotask.toml or ~/.config/astrotask/astrotask.toml
//
// Without an API key the demo client is used regardless of the demo setting.
package config
