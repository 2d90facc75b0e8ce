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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

var (
	keysOutputFile string
	keysKeyFile    string
	keysKeyEnv     string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage a node's secp256k1 identity key pair",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new secp256k1 identity key pair",
	Long: `Generate a fresh secp256k1 key pair, normalized to BIP-340's
even-Y representative, and print its pubkey and 32-byte hex secret.`,
	Example: `  # Print a new key pair to stdout
  crosstown-node keys generate

  # Write the secret to a file referenced by identity.private_key_path
  crosstown-node keys generate --output node.key`,
	RunE: runKeysGenerate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the pubkey derived from an existing secret key",
	Example: `  crosstown-node keys show --key-file node.key
  crosstown-node keys show --key-env CROSSTOWN_PRIVATE_KEY`,
	RunE: runKeysShow,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)

	keysGenerateCmd.Flags().StringVarP(&keysOutputFile, "output", "o", "", "write the hex secret to this file (0600) instead of stdout")

	keysShowCmd.Flags().StringVar(&keysKeyFile, "key-file", "", "path to a file holding the 32-byte hex secret")
	keysShowCmd.Flags().StringVar(&keysKeyEnv, "key-env", "", "environment variable holding the 32-byte hex secret")
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	kp, err := identity.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	secretHex := hex.EncodeToString(kp.Secret())

	if keysOutputFile == "" {
		fmt.Printf("pubkey: %s\n", kp.Pubkey())
		fmt.Printf("secret: %s\n", secretHex)
		return nil
	}

	if err := os.WriteFile(keysOutputFile, []byte(secretHex+"\n"), 0o600); err != nil {
		return fmt.Errorf("write secret file: %w", err)
	}
	fmt.Printf("pubkey: %s\n", kp.Pubkey())
	fmt.Printf("secret written to: %s\n", keysOutputFile)
	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	kp, err := loadKeyPairFromFlags()
	if err != nil {
		return err
	}
	fmt.Printf("pubkey: %s\n", kp.Pubkey())
	return nil
}

func loadKeyPairFromFlags() (*identity.KeyPair, error) {
	var secretHex string
	switch {
	case keysKeyEnv != "":
		secretHex = os.Getenv(keysKeyEnv)
		if secretHex == "" {
			return nil, fmt.Errorf("environment variable %s is empty", keysKeyEnv)
		}
	case keysKeyFile != "":
		// #nosec G304 - operator-specified key file path is intentional for this CLI.
		data, err := os.ReadFile(keysKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		secretHex = strings.TrimSpace(string(data))
	default:
		return nil, fmt.Errorf("one of --key-file or --key-env is required")
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("decode hex secret: %w", err)
	}
	return identity.KeyPairFromSecret(secret)
}
