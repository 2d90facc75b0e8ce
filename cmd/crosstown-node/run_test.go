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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func TestTrimHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing whitespace", "deadbeef", "deadbeef"},
		{"trailing newline", "deadbeef\n", "deadbeef"},
		{"trailing CRLF", "deadbeef\r\n", "deadbeef"},
		{"trailing spaces", "deadbeef   ", "deadbeef"},
		{"empty string", "", ""},
		{"only whitespace", "\n\r ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimHex(tt.in); got != tt.want {
				t.Errorf("trimHex(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRSASigner(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	t.Run("PKCS1 PEM", func(t *testing.T) {
		block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
		signer, err := parseRSASigner(pem.EncodeToMemory(block))
		if err != nil {
			t.Fatalf("parseRSASigner() error = %v", err)
		}
		if !signer.Public().(*rsa.PublicKey).Equal(&key.PublicKey) {
			t.Error("parsed signer's public key does not match original")
		}
	})

	t.Run("PKCS8 PEM", func(t *testing.T) {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			t.Fatalf("marshal pkcs8: %v", err)
		}
		block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
		signer, err := parseRSASigner(pem.EncodeToMemory(block))
		if err != nil {
			t.Fatalf("parseRSASigner() error = %v", err)
		}
		if !signer.Public().(*rsa.PublicKey).Equal(&key.PublicKey) {
			t.Error("parsed signer's public key does not match original")
		}
	})

	t.Run("invalid PEM", func(t *testing.T) {
		if _, err := parseRSASigner([]byte("not a pem block")); err == nil {
			t.Error("expected error for non-PEM input, got nil")
		}
	})

	t.Run("malformed DER", func(t *testing.T) {
		block := &pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")}
		if _, err := parseRSASigner(pem.EncodeToMemory(block)); err == nil {
			t.Error("expected error for malformed DER, got nil")
		}
	})
}
