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

// Package identity implements the Pubkey and KeyPair primitives the
// rest of Crosstown builds on: a 32-byte secp256k1 secret key, its
// BIP-340 ("x-only") Schnorr public key, and Schnorr sign/verify over
// 32-byte message digests.
//
// A Pubkey is always the 64-character lowercase hex encoding of the
// x-coordinate of the public key point, normalized to its even-Y
// representative exactly as BIP-340's lift_x does, so verification
// never needs the parity bit.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Pubkey is a 64-character lowercase hex string, the invariant form
// every peer pubkey is validated and compared against.
type Pubkey string

var pubkeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Valid reports whether p matches the pubkey invariant ^[0-9a-f]{64}$.
func (p Pubkey) Valid() bool {
	return pubkeyPattern.MatchString(string(p))
}

// Short returns the "nostr-"-prefixed peer id derived from the first
// 16 hex characters of the pubkey, as used throughout the bootstrap
// and monitor components.
func (p Pubkey) Short() string {
	s := string(p)
	if len(s) > 16 {
		s = s[:16]
	}
	return "nostr-" + s
}

// KeyPair holds a secp256k1 secret key together with its normalized
// (even-Y) public key used for BIP-340 Schnorr signatures.
type KeyPair struct {
	secret *secp256k1.PrivateKey
	pubkey Pubkey
}

// GenerateKeyPair creates a fresh secp256k1 key pair and normalizes it
// to the even-Y representative required by BIP-340: if the generated
// public key has an odd Y coordinate, the private scalar is negated
// (d -> n-d), which negates Y without changing X.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return newKeyPair(priv)
}

// KeyPairFromSecret builds a KeyPair from a 32-byte secret, normalizing
// it to the even-Y representative.
func KeyPairFromSecret(secret []byte) (*KeyPair, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(secret))
	}
	priv := secp256k1.PrivKeyFromBytes(secret)
	return newKeyPair(priv)
}

func newKeyPair(priv *secp256k1.PrivateKey) (*KeyPair, error) {
	pub := priv.PubKey()
	if isOddY(pub) {
		negated := negateScalar(priv.Key.Bytes())
		priv = secp256k1.PrivKeyFromBytes(negated[:])
		pub = priv.PubKey()
	}
	return &KeyPair{
		secret: priv,
		pubkey: xOnlyHex(pub),
	}, nil
}

// Pubkey returns the key pair's public key in its canonical hex form.
func (kp *KeyPair) Pubkey() Pubkey {
	return kp.pubkey
}

// Secret returns the raw 32-byte secret key. Callers must not persist
// or log this value.
func (kp *KeyPair) Secret() []byte {
	b := kp.secret.Key.Bytes()
	out := make([]byte, len(b))
	copy(out, b[:])
	return out
}

// SchnorrPrivateKey exposes the underlying secp256k1 private key for
// callers (ECDH conversation-key derivation) that need curve
// operations beyond signing.
func (kp *KeyPair) SchnorrPrivateKey() *secp256k1.PrivateKey {
	return kp.secret
}

// Sign produces a BIP-340 Schnorr signature (128 hex chars / 64 bytes)
// over the SHA-256 digest of msg.
func (kp *KeyPair) Sign(msg []byte) (string, error) {
	digest := sha256.Sum256(msg)
	sig, err := schnorr.Sign(kp.secret, digest[:])
	if err != nil {
		return "", fmt.Errorf("schnorr sign: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// SignDigest signs a pre-computed 32-byte digest directly; used when
// the caller has already hashed the canonical event serialization.
func (kp *KeyPair) SignDigest(digest [32]byte) (string, error) {
	sig, err := schnorr.Sign(kp.secret, digest[:])
	if err != nil {
		return "", fmt.Errorf("schnorr sign: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks a 128-hex-char Schnorr signature against a message and
// a 64-hex-char pubkey.
func Verify(pubkey Pubkey, msg []byte, sigHex string) error {
	digest := sha256.Sum256(msg)
	return VerifyDigest(pubkey, digest, sigHex)
}

// VerifyDigest checks a signature against a pre-computed digest.
func VerifyDigest(pubkey Pubkey, digest [32]byte, sigHex string) error {
	if !pubkey.Valid() {
		return fmt.Errorf("invalid pubkey format: %q", string(pubkey))
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("parse signature: %w", err)
	}
	pub, err := LiftX(pubkey)
	if err != nil {
		return fmt.Errorf("lift pubkey: %w", err)
	}
	if !sig.Verify(digest[:], pub) {
		return fmt.Errorf("schnorr signature did not verify")
	}
	return nil
}

// xOnlyHex returns the 64-hex-char x-only encoding of a public key
// whose Y coordinate is already even.
func xOnlyHex(pub *secp256k1.PublicKey) Pubkey {
	compressed := pub.SerializeCompressed()
	return Pubkey(hex.EncodeToString(compressed[1:]))
}

func isOddY(pub *secp256k1.PublicKey) bool {
	compressed := pub.SerializeCompressed()
	return compressed[0] == secp256k1.PubKeyFormatCompressedOdd
}

// negateScalar computes (n - d) mod n for the secp256k1 group order n,
// flipping the parity of the corresponding public key's Y coordinate
// without altering its X coordinate.
func negateScalar(d [32]byte) [32]byte {
	order := secp256k1.S256().N
	scalar := new(big.Int).SetBytes(d[:])
	scalar.Mod(scalar, order)
	negated := new(big.Int).Sub(order, scalar)
	negated.Mod(negated, order)

	var out [32]byte
	negated.FillBytes(out[:])
	return out
}

// secp256k1FieldPrime is p in y^2 = x^3 + 7 (mod p).
var secp256k1FieldPrime, _ = new(big.Int).SetString(
	"fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f", 16)

// LiftX reconstructs the even-Y public key point for a 64-hex-char
// x-only pubkey, following BIP-340's lift_x algorithm: compute
// y^2 = x^3+7 mod p, take the square root (p is congruent to 3 mod 4,
// so sqrt(a) = a^((p+1)/4) mod p), and pick the even root. Exported so
// other packages (event's ECDH conversation-key derivation) can reuse it.
func LiftX(pubkey Pubkey) (*secp256k1.PublicKey, error) {
	xBytes, err := hex.DecodeString(string(pubkey))
	if err != nil || len(xBytes) != 32 {
		return nil, fmt.Errorf("pubkey must be 32 bytes hex")
	}
	x := new(big.Int).SetBytes(xBytes)
	if x.Cmp(secp256k1FieldPrime) >= 0 {
		return nil, fmt.Errorf("x coordinate out of field range")
	}

	rhs := new(big.Int).Exp(x, big.NewInt(3), secp256k1FieldPrime)
	rhs.Add(rhs, big.NewInt(7))
	rhs.Mod(rhs, secp256k1FieldPrime)

	exp := new(big.Int).Add(secp256k1FieldPrime, big.NewInt(1))
	exp.Div(exp, big.NewInt(4))
	y := new(big.Int).Exp(rhs, exp, secp256k1FieldPrime)

	check := new(big.Int).Mul(y, y)
	check.Mod(check, secp256k1FieldPrime)
	if check.Cmp(rhs) != 0 {
		return nil, fmt.Errorf("x is not a valid curve coordinate")
	}

	if y.Bit(0) == 1 {
		y.Sub(secp256k1FieldPrime, y)
	}

	var compressed [33]byte
	compressed[0] = secp256k1.PubKeyFormatCompressedEven
	x.FillBytes(compressed[1:])

	return secp256k1.ParsePubKey(compressed[:])
}
