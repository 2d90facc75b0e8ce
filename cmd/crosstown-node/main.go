// Crosstown Protocol
// Copyright (C) 2026 Crosstown Project
//
// This file is part of Crosstown.
//
// Crosstown is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Crosstown is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Crosstown. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crosstown-node",
	Short: "Crosstown node - peer discovery, bootstrap, and monitoring",
	Long: `crosstown-node runs a Crosstown connector's peer-discovery and
bootstrap lifecycle: it aggregates known peers, registers with each over
its relay, optionally performs a paid SPSP handshake and announce, then
keeps watching its own relay for new peer descriptors.

This tool supports:
- Running the bootstrap + monitor lifecycle with health/readiness endpoints
- Schnorr (secp256k1) key pair management
- Version reporting`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - run.go: runCmd
	// - keys.go: keysCmd (generate, show)
	// - version.go: versionCmd
}
