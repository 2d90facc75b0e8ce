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
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})

	if err != nil {
		t.Fatalf("Failed to load development config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}

	if cfg.Relay == nil || cfg.Relay.QueryTimeout != 5*time.Second {
		t.Error("Relay.QueryTimeout should have default value of 5s")
	}
}

func TestLoadForEnvironment(t *testing.T) {
	tests := []string{"development", "staging", "production", "local"}

	for _, env := range tests {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(LoaderOptions{
				ConfigDir:      ".",
				Environment:    env,
				SkipValidation: true,
			})
			if err != nil {
				t.Fatalf("Failed to load %s config: %v", env, err)
			}

			if cfg.Environment != env {
				t.Errorf("Environment = %q, want %q", cfg.Environment, env)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("CROSSTOWN_OWN_RELAY_URL", "wss://override-relay.example")
	os.Setenv("CROSSTOWN_LOG_LEVEL", "debug")
	defer os.Unsetenv("CROSSTOWN_OWN_RELAY_URL")
	defer os.Unsetenv("CROSSTOWN_LOG_LEVEL")

	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})

	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Relay.OwnRelayURL != "wss://override-relay.example" {
		t.Errorf("OwnRelayURL = %q, want %q", cfg.Relay.OwnRelayURL, "wss://override-relay.example")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadWithCustomConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	testConfig := `
environment: test
logging:
  level: info
  format: json
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(LoaderOptions{
		ConfigDir:      tmpDir,
		Environment:    "test",
		SkipValidation: true,
	})

	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
	if cfg.Environment != "test" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "test")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestDefaultLoaderOptions(t *testing.T) {
	opts := DefaultLoaderOptions()

	if opts.ConfigDir != "config" {
		t.Errorf("ConfigDir = %q, want %q", opts.ConfigDir, "config")
	}

	if opts.SkipEnvSubstitution {
		t.Error("SkipEnvSubstitution should be false by default")
	}

	if opts.SkipValidation {
		t.Error("SkipValidation should be false by default")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Environment != "development" {
		t.Errorf("Default environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.Bootstrap.BasePricePerByte != 10 {
		t.Errorf("Default BasePricePerByte = %d, want 10", cfg.Bootstrap.BasePricePerByte)
	}
	if cfg.Bootstrap.RegistryEnabled == nil || !*cfg.Bootstrap.RegistryEnabled {
		t.Error("Default RegistryEnabled should be true")
	}
}

func TestSettlementConfigDefaults(t *testing.T) {
	cfg := &Config{
		Settlement: &SettlementConfig{},
	}
	setDefaults(cfg)

	if cfg.Settlement.ChannelOpenTimeout != 30*time.Second {
		t.Errorf("ChannelOpenTimeout = %v, want %v", cfg.Settlement.ChannelOpenTimeout, 30*time.Second)
	}
	if cfg.Settlement.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want %v", cfg.Settlement.PollInterval, time.Second)
	}
	if cfg.Settlement.SettlementTimeout != 86400 {
		t.Errorf("SettlementTimeout = %d, want 86400", cfg.Settlement.SettlementTimeout)
	}
}

func TestValidateConfigurationFlagsMissingPubkey(t *testing.T) {
	cfg := &Config{
		Bootstrap: &BootstrapConfig{
			KnownPeers: []KnownPeerConfig{{RelayURL: "wss://relay.example"}},
		},
	}
	setDefaults(cfg)

	issues := ValidateConfiguration(cfg)
	found := false
	for _, issue := range issues {
		if issue.Field == "bootstrap.known_peers[0].pubkey" && issue.Level == "error" {
			found = true
		}
	}
	if !found {
		t.Error("expected an error-level issue for a known peer missing a pubkey")
	}
}
