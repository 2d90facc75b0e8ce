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

package event

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

// conversationKeyInfo domain-separates the HKDF expansion used to derive a
// NIP-44-style symmetric conversation key from an ECDH shared secret.
const conversationKeyInfo = "crosstown-nip44-conversation-key-v1"

// ecdhSharedX computes the X coordinate of (our secret) * (their x-only
// public key), the standard secp256k1 ECDH primitive used by NIP-44: the
// peer's public key is lifted to its even-Y representative exactly as a
// Schnorr pubkey is, then scalar-multiplied by our private scalar.
func ecdhSharedX(kp *identity.KeyPair, peer identity.Pubkey) ([]byte, error) {
	if !peer.Valid() {
		return nil, fmt.Errorf("invalid peer pubkey format: %q", string(peer))
	}
	peerPoint, err := identity.LiftX(peer)
	if err != nil {
		return nil, fmt.Errorf("lift peer pubkey: %w", err)
	}

	var peerJacobian secp256k1.JacobianPoint
	peerPoint.AsJacobian(&peerJacobian)

	priv := kp.SchnorrPrivateKey()
	var shared secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&priv.Key, &peerJacobian, &shared)
	shared.ToAffine()

	x := shared.X.Bytes()
	return x[:], nil
}

// conversationKey derives the 32-byte symmetric key shared by (ours, peer)
// from the ECDH shared secret via HKDF-SHA256, domain-separated from any
// other key derivation in this codebase.
func conversationKey(kp *identity.KeyPair, peer identity.Pubkey) ([]byte, error) {
	sharedX, err := ecdhSharedX(kp, peer)
	if err != nil {
		return nil, err
	}
	reader := hkdf.New(sha256.New, sharedX, nil, []byte(conversationKeyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive conversation key: %w", err)
	}
	return key, nil
}

// encryptNIP44 seals plaintext under the conversation key derived from
// (senderSecret, recipientPubkey) and returns base64(nonce || ciphertext).
func encryptNIP44(senderSecret *identity.KeyPair, recipientPubkey identity.Pubkey, plaintext []byte) (string, error) {
	key, err := conversationKey(senderSecret, recipientPubkey)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("create AEAD: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptNIP44 reverses encryptNIP44 given the conversation key derived
// from (receiverSecret, senderPubkey).
func decryptNIP44(receiverSecret *identity.KeyPair, senderPubkey identity.Pubkey, ciphertext string) ([]byte, error) {
	key, err := conversationKey(receiverSecret, senderPubkey)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode base64 content: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := raw[:chacha20poly1305.NonceSize]
	sealed := raw[chacha20poly1305.NonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
