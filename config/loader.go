// Copyright (C) 2026 Crosstown Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
	// SkipEnvSubstitution disables environment variable substitution
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation
	SkipValidation bool
	// DotEnvPath is loaded via godotenv before environment variable
	// substitution and overrides run, so a developer's local .env can
	// supply CROSSTOWN_* values without exporting them in the shell.
	// Missing is not an error — this is a local-development convenience,
	// not a required input. Empty disables dotenv loading entirely.
	DotEnvPath string
}

// DefaultLoaderOptions returns default loader options
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:           "config",
		Environment:         "",
		SkipEnvSubstitution: false,
		SkipValidation:      false,
		DotEnvPath:          ".env",
	}
}

// Load loads configuration with automatic environment detection
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.DotEnvPath != "" {
		if err := godotenv.Load(options.DotEnvPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", options.DotEnvPath, err)
		}
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	envConfigPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	cfg, err := loadConfigFile(envConfigPath)
	if err != nil {
		defaultConfigPath := filepath.Join(options.ConfigDir, "default.yaml")
		cfg, err = loadConfigFile(defaultConfigPath)
		if err != nil {
			configPath := filepath.Join(options.ConfigDir, "config.yaml")
			cfg, err = loadConfigFile(configPath)
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		errors := ValidateConfiguration(cfg)
		for _, e := range errors {
			if e.Level == "error" {
				return nil, fmt.Errorf("configuration validation failed: %s - %s", e.Field, e.Message)
			}
		}
	}

	return cfg, nil
}

// loadConfigFile loads a single config file
func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides config with environment variables,
// the highest-priority layer after file load and ${VAR} substitution.
func applyEnvironmentOverrides(cfg *Config) {
	if keyPath := os.Getenv("CROSSTOWN_PRIVATE_KEY_PATH"); keyPath != "" {
		if cfg.Identity == nil {
			cfg.Identity = &IdentityConfig{}
		}
		cfg.Identity.PrivateKeyPath = keyPath
	}

	if relayURL := os.Getenv("CROSSTOWN_OWN_RELAY_URL"); relayURL != "" && cfg.Relay != nil {
		cfg.Relay.OwnRelayURL = relayURL
	}
	if defaultRelay := os.Getenv("CROSSTOWN_DEFAULT_RELAY_URL"); defaultRelay != "" && cfg.Relay != nil {
		cfg.Relay.DefaultRelayURL = defaultRelay
	}

	if registryURL := os.Getenv("CROSSTOWN_REGISTRY_URL"); registryURL != "" && cfg.Bootstrap != nil {
		cfg.Bootstrap.RegistryURL = registryURL
	}
	if os.Getenv("CROSSTOWN_REGISTRY_ENABLED") == "true" && cfg.Bootstrap != nil {
		enabled := true
		cfg.Bootstrap.RegistryEnabled = &enabled
	}
	if os.Getenv("CROSSTOWN_REGISTRY_ENABLED") == "false" && cfg.Bootstrap != nil {
		enabled := false
		cfg.Bootstrap.RegistryEnabled = &enabled
	}

	if logLevel := os.Getenv("CROSSTOWN_LOG_LEVEL"); logLevel != "" && cfg.Logging != nil {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("CROSSTOWN_LOG_FORMAT"); logFormat != "" && cfg.Logging != nil {
		cfg.Logging.Format = logFormat
	}

	if os.Getenv("CROSSTOWN_METRICS_ENABLED") == "true" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("CROSSTOWN_METRICS_ENABLED") == "false" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = false
	}
}

// LoadForEnvironment loads configuration for a specific environment
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{
		ConfigDir:   "config",
		Environment: environment,
	})
}

// MustLoad loads configuration or panics on error
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
