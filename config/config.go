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

// Package config loads and validates a Crosstown node's configuration:
// its identity, relay endpoints, peer sources, settlement posture, and
// ambient logging/metrics/health settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a Crosstown node's complete configuration.
type Config struct {
	Environment string `yaml:"environment" json:"environment"`

	Identity  *IdentityConfig  `yaml:"identity" json:"identity"`
	Relay     *RelayConfig     `yaml:"relay" json:"relay"`
	Bootstrap *BootstrapConfig `yaml:"bootstrap" json:"bootstrap"`
	Settlement *SettlementConfig `yaml:"settlement" json:"settlement"`

	Logging *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
	Health  *HealthConfig  `yaml:"health" json:"health"`
}

// IdentityConfig locates this node's nostr key pair.
type IdentityConfig struct {
	// PrivateKeyPath points at a file holding a 32-byte hex-encoded
	// secret key. If empty and PrivateKeyEnv is also empty, a fresh key
	// pair is generated at startup and never persisted.
	PrivateKeyPath string `yaml:"private_key_path" json:"private_key_path"`
	// PrivateKeyEnv names an environment variable holding the same hex
	// secret, checked before PrivateKeyPath.
	PrivateKeyEnv string `yaml:"private_key_env" json:"private_key_env"`
}

// RelayConfig configures the relay endpoints this node uses.
type RelayConfig struct {
	// OwnRelayURL is the relay the bootstrap monitor (C10) subscribes to
	// for kind-10032 peer descriptor events — typically the node's own
	// local relay.
	OwnRelayURL string `yaml:"own_relay_url" json:"own_relay_url"`
	// DefaultRelayURL (spec option `defaultRelayUrl`) is read by
	// ValidateConfiguration only, which warns about a known peer with no
	// relay_url when it is empty. It is not substituted for a missing
	// relay URL on known or registry-sourced peers.
	DefaultRelayURL string `yaml:"default_relay_url" json:"default_relay_url"`
	// QueryTimeout bounds each per-peer relay query; default 5s (spec
	// option `queryTimeout`).
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

// BootstrapConfig configures the peer-discovery and bootstrap
// orchestrator (C4, C9).
type BootstrapConfig struct {
	// KnownPeers seeds the peer set, bypassing registry lookup (spec
	// option `knownPeers`).
	KnownPeers []KnownPeerConfig `yaml:"known_peers" json:"known_peers"`
	// RegistryEnabled enables the remote registry fetch; default true
	// (spec option `registryEnabled`).
	RegistryEnabled *bool `yaml:"registry_enabled" json:"registry_enabled"`
	RegistryURL     string `yaml:"registry_url" json:"registry_url"`
	// RegistrySigningKeyPath points at a PEM-encoded RSA private key used
	// to sign the registry client's JWT bearer assertion (registryclient
	// uses RS256); registry fetch is skipped gracefully if unset.
	RegistrySigningKeyPath string `yaml:"registry_signing_key_path" json:"registry_signing_key_path"`
	// RegistryIssuer is the JWT "iss"/"sub" claim identifying this node
	// to the registry.
	RegistryIssuer string `yaml:"registry_issuer" json:"registry_issuer"`
	// RegistryKeyID is placed in the JWT header "kid".
	RegistryKeyID string `yaml:"registry_key_id" json:"registry_key_id"`
	// BasePricePerByte is the announcement cost multiplier; default 10
	// (spec option `basePricePerByte`).
	BasePricePerByte int64 `yaml:"base_price_per_byte" json:"base_price_per_byte"`
	// Concurrency bounds per-peer fan-out during bootstrap; default 8.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	// OwnIlpInfo is our own published peer descriptor (spec option
	// `ownIlpInfo`).
	OwnIlpInfo OwnIlpInfoConfig `yaml:"own_ilp_info" json:"own_ilp_info"`
}

// KnownPeerConfig is one statically-configured peer seed.
type KnownPeerConfig struct {
	Pubkey      string `yaml:"pubkey" json:"pubkey"`
	RelayURL    string `yaml:"relay_url" json:"relay_url"`
	IlpAddress  string `yaml:"ilp_address,omitempty" json:"ilp_address,omitempty"`
	BtpEndpoint string `yaml:"btp_endpoint,omitempty" json:"btp_endpoint,omitempty"`
}

// OwnIlpInfoConfig is the descriptor this node publishes about itself.
type OwnIlpInfoConfig struct {
	IlpAddress  string `yaml:"ilp_address" json:"ilp_address"`
	BtpEndpoint string `yaml:"btp_endpoint" json:"btp_endpoint"`
	AssetCode   string `yaml:"asset_code" json:"asset_code"`
	AssetScale  int    `yaml:"asset_scale" json:"asset_scale"`
}

// SettlementConfig is this node's own settlement posture (spec option
// `settlementInfo`) plus the negotiation tuning knobs (spec option
// `settlementNegotiationConfig`).
type SettlementConfig struct {
	SupportedChains     []string          `yaml:"supported_chains" json:"supported_chains"`
	SettlementAddresses map[string]string `yaml:"settlement_addresses" json:"settlement_addresses"`
	PreferredTokens     map[string]string `yaml:"preferred_tokens" json:"preferred_tokens"`
	TokenNetworks       map[string]string `yaml:"token_networks" json:"token_networks"`

	InitialDeposit     string        `yaml:"initial_deposit" json:"initial_deposit"`
	SettlementTimeout  int64         `yaml:"settlement_timeout_seconds" json:"settlement_timeout_seconds"`
	ChannelOpenTimeout time.Duration `yaml:"channel_open_timeout" json:"channel_open_timeout"`
	PollInterval       time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig configures internal/logger's output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, console
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig configures internal/metrics' Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures pkg/health's liveness/readiness endpoints.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing YAML or JSON by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Relay == nil {
		cfg.Relay = &RelayConfig{}
	}
	if cfg.Relay.QueryTimeout == 0 {
		cfg.Relay.QueryTimeout = 5 * time.Second
	}

	if cfg.Bootstrap == nil {
		cfg.Bootstrap = &BootstrapConfig{}
	}
	if cfg.Bootstrap.RegistryEnabled == nil {
		enabled := true
		cfg.Bootstrap.RegistryEnabled = &enabled
	}
	if cfg.Bootstrap.BasePricePerByte == 0 {
		cfg.Bootstrap.BasePricePerByte = 10
	}
	if cfg.Bootstrap.Concurrency == 0 {
		cfg.Bootstrap.Concurrency = 8
	}

	if cfg.Settlement != nil {
		if cfg.Settlement.InitialDeposit == "" {
			cfg.Settlement.InitialDeposit = "0"
		}
		if cfg.Settlement.SettlementTimeout == 0 {
			cfg.Settlement.SettlementTimeout = 86400
		}
		if cfg.Settlement.ChannelOpenTimeout == 0 {
			cfg.Settlement.ChannelOpenTimeout = 30 * time.Second
		}
		if cfg.Settlement.PollInterval == 0 {
			cfg.Settlement.PollInterval = time.Second
		}
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Health == nil {
		cfg.Health = &HealthConfig{Enabled: true}
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8090
	}
}
