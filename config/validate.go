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

import "fmt"

// ValidationIssue is one finding from ValidateConfiguration. Level is
// either "error" (blocks Load, unless SkipValidation) or "warning".
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

// ValidateConfiguration checks cfg for inconsistencies that would
// otherwise surface later as confusing runtime failures.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Relay != nil && cfg.Relay.QueryTimeout < 0 {
		issues = append(issues, ValidationIssue{
			Field:   "relay.query_timeout",
			Message: "must not be negative",
			Level:   "error",
		})
	}

	if cfg.Bootstrap != nil {
		if cfg.Bootstrap.BasePricePerByte < 0 {
			issues = append(issues, ValidationIssue{
				Field:   "bootstrap.base_price_per_byte",
				Message: "must not be negative",
				Level:   "error",
			})
		}
		if cfg.Bootstrap.Concurrency < 0 {
			issues = append(issues, ValidationIssue{
				Field:   "bootstrap.concurrency",
				Message: "must not be negative",
				Level:   "error",
			})
		}
		for i, p := range cfg.Bootstrap.KnownPeers {
			if p.Pubkey == "" {
				issues = append(issues, ValidationIssue{
					Field:   fmt.Sprintf("bootstrap.known_peers[%d].pubkey", i),
					Message: "pubkey is required",
					Level:   "error",
				})
			}
			if p.RelayURL == "" && cfg.Relay != nil && cfg.Relay.DefaultRelayURL == "" {
				issues = append(issues, ValidationIssue{
					Field:   fmt.Sprintf("bootstrap.known_peers[%d].relay_url", i),
					Message: "relay_url is empty and no default_relay_url is configured",
					Level:   "warning",
				})
			}
		}
		if cfg.Bootstrap.RegistryEnabled != nil && *cfg.Bootstrap.RegistryEnabled && cfg.Bootstrap.RegistryURL == "" {
			issues = append(issues, ValidationIssue{
				Field:   "bootstrap.registry_url",
				Message: "registry_enabled is true but registry_url is empty",
				Level:   "warning",
			})
		}
	}

	if cfg.Settlement != nil && cfg.Settlement.PollInterval < 0 {
		issues = append(issues, ValidationIssue{
			Field:   "settlement.poll_interval",
			Message: "must not be negative",
			Level:   "error",
		})
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			issues = append(issues, ValidationIssue{
				Field:   "logging.level",
				Message: fmt.Sprintf("unrecognized level %q", cfg.Logging.Level),
				Level:   "warning",
			})
		}
	}

	return issues
}
