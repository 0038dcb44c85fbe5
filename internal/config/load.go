package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.astrotask/astrotask.toml or OS-specific config dir)
// 3. Project config file (astrotask.toml or .astrotask.toml in current directory)
// 4. Environment variables
// 5. CLI flags
//
// Flags are defined on fs and parsed from args; callers read the remaining
// arguments from fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}
	var files []string

	// 1. Defaults
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. User config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
		files = append(files, userConfigFile)
	}

	// 3. Project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
		files = append(files, projectConfigFile)
	}

	// 4. Environment
	loadFromEnv(cfg, sources)

	// 5. CLI flags
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// loadConfigFile decodes TOML into cfg. Only keys present in the file
// change cfg; each one is recorded in sources.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if sources != nil {
		for _, field := range configFields() {
			if md.IsDefined(field) {
				sources[field] = source
			}
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config) error {
	cfg.LogDir = expandPath(cfg.LogDir)
	cfg.PromptFile = expandPath(cfg.PromptFile)
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if cfg.APIKey == "" {
		cfg.Demo = true
	}
	if !cfg.Demo && cfg.APIURL == "" {
		return fmt.Errorf("api_url is required when demo mode is off")
	}
	if cfg.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", cfg.Temperature)
	}
	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", cfg.RequestTimeoutSeconds)
	}
	if cfg.DemoDelayMS < 0 {
		cfg.DemoDelayMS = 0
	}

	cfg.location = nil
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("timezone %q: %w", tz, err)
		}
		cfg.location = loc
	}
	return nil
}

// WriteTOML encodes the configuration with the API key redacted.
func (c *Config) WriteTOML(w io.Writer) error {
	redacted := c.Redacted()
	return toml.NewEncoder(w).Encode(redacted)
}
