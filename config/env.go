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
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables in config
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Identity != nil {
		cfg.Identity.PrivateKeyPath = SubstituteEnvVars(cfg.Identity.PrivateKeyPath)
		cfg.Identity.PrivateKeyEnv = SubstituteEnvVars(cfg.Identity.PrivateKeyEnv)
	}

	if cfg.Relay != nil {
		cfg.Relay.OwnRelayURL = SubstituteEnvVars(cfg.Relay.OwnRelayURL)
		cfg.Relay.DefaultRelayURL = SubstituteEnvVars(cfg.Relay.DefaultRelayURL)
	}

	if cfg.Bootstrap != nil {
		cfg.Bootstrap.RegistryURL = SubstituteEnvVars(cfg.Bootstrap.RegistryURL)
		cfg.Bootstrap.OwnIlpInfo.IlpAddress = SubstituteEnvVars(cfg.Bootstrap.OwnIlpInfo.IlpAddress)
		cfg.Bootstrap.OwnIlpInfo.BtpEndpoint = SubstituteEnvVars(cfg.Bootstrap.OwnIlpInfo.BtpEndpoint)
		for i := range cfg.Bootstrap.KnownPeers {
			cfg.Bootstrap.KnownPeers[i].RelayURL = SubstituteEnvVars(cfg.Bootstrap.KnownPeers[i].RelayURL)
		}
	}

	if cfg.Logging != nil {
		cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
		cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
		cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
	}

	if cfg.Metrics != nil {
		cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
	}
}

// GetEnvironment returns the current environment from CROSSTOWN_ENV or defaults to development
func GetEnvironment() string {
	env := os.Getenv("CROSSTOWN_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if running in production environment
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if running in development or local environment
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
