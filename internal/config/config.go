package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.WSPort == 0 {
		cfg.WSPort = DefaultWSPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.ParseCacheSize == 0 {
		cfg.ParseCacheSize = DefaultParseCacheSize
	}
	if cfg.MaxSubscriptionsPerClient == 0 {
		cfg.MaxSubscriptionsPerClient = DefaultMaxSubscriptionsPerClient
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if len(cfg.Profiles) == 0 {
		return errors.New("at least one profile is required")
	}

	profileNames := make(map[string]bool)
	defaults := 0
	for i, profile := range cfg.Profiles {
		if profile.Name == "" {
			return fmt.Errorf("profile[%d]: name is required", i)
		}

		if profileNames[profile.Name] {
			return fmt.Errorf("profile[%d]: duplicate profile name '%s'", i, profile.Name)
		}
		profileNames[profile.Name] = true

		if profile.Script == "" {
			return fmt.Errorf("profile '%s': script is required", profile.Name)
		}

		if profile.Default {
			defaults++
		}
	}

	if defaults > 1 {
		return errors.New("at most one profile may be marked default")
	}

	return nil
}
