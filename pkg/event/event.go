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

// Package event implements the signed control event that is exchanged on
// the relay layer: building, canonical serialization, Schnorr signing and
// verification, and the NIP-44-style authenticated encryption used for
// addressed (non-public) event content.
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

// Event kinds consumed/produced by Crosstown.
const (
	KindPeerDescriptor = 10032
	KindSpspRequest     = 23194
	KindSpspResponse    = 23195
)

var (
	hex64Pattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
	hex128Pattern = regexp.MustCompile(`^[0-9a-f]{128}$`)
)

// Tag is an ordered sequence of strings; the first element is a short tag
// name such as "p" for a referenced pubkey.
type Tag []string

// SignedEvent is the canonical unit exchanged on the relay layer.
type SignedEvent struct {
	ID        string `json:"id"`
	Pubkey    string `json:"pubkey"`
	Kind      int    `json:"kind"`
	CreatedAt int64  `json:"createdAt"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// InvalidEvent reports a signature, schema, addressee, or decryption
// failure on a received event.
type InvalidEvent struct {
	Reason string
	Cause  error
}

func (e *InvalidEvent) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid event: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid event: %s", e.Reason)
}

func (e *InvalidEvent) Unwrap() error { return e.Cause }

func invalidEvent(reason string, cause error) *InvalidEvent {
	return &InvalidEvent{Reason: reason, Cause: cause}
}

// canonicalForm is the array serialized to produce an event's id, modeled
// on Nostr's NIP-01 event-id derivation: a reserved leading version field
// keeps the format extensible.
type canonicalForm struct {
	Version   int
	Pubkey    string
	CreatedAt int64
	Kind      int
	Tags      []Tag
	Content   string
}

func (f canonicalForm) MarshalJSON() ([]byte, error) {
	tags := f.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return json.Marshal([]interface{}{f.Version, f.Pubkey, f.CreatedAt, f.Kind, tags, f.Content})
}

// canonicalID computes sha256(canonical-serialization) and returns it hex
// encoded, matching the id invariant (32-byte hex hash).
func canonicalID(pubkey string, createdAt int64, kind int, tags []Tag, content string) (string, [32]byte, error) {
	form := canonicalForm{
		Version:   0,
		Pubkey:    pubkey,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	raw, err := json.Marshal(form)
	if err != nil {
		return "", [32]byte{}, fmt.Errorf("marshal canonical form: %w", err)
	}
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:]), digest, nil
}

// build constructs and signs a new event with the given fields.
func build(kp *identity.KeyPair, kind int, createdAt int64, tags []Tag, content string) (*SignedEvent, error) {
	pubkey := string(kp.Pubkey())
	id, digest, err := canonicalID(pubkey, createdAt, kind, tags, content)
	if err != nil {
		return nil, err
	}
	sig, err := kp.SignDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("sign event: %w", err)
	}
	return &SignedEvent{
		ID:        id,
		Pubkey:    pubkey,
		Kind:      kind,
		CreatedAt: createdAt,
		Tags:      tags,
		Content:   content,
		Sig:       sig,
	}, nil
}

// Verify checks that e.id matches the canonical hash of its remaining
// fields and that e.sig verifies against e.pubkey and e.id.
func Verify(e *SignedEvent) error {
	if !hex64Pattern.MatchString(e.Pubkey) {
		return invalidEvent("malformed pubkey", nil)
	}
	if !hex64Pattern.MatchString(e.ID) {
		return invalidEvent("malformed id", nil)
	}
	if !hex128Pattern.MatchString(e.Sig) {
		return invalidEvent("malformed signature", nil)
	}
	wantID, digest, err := canonicalID(e.Pubkey, e.CreatedAt, e.Kind, e.Tags, e.Content)
	if err != nil {
		return invalidEvent("canonicalization failed", err)
	}
	if wantID != e.ID {
		return invalidEvent("id does not match canonical hash", nil)
	}
	if err := identity.VerifyDigest(identity.Pubkey(e.Pubkey), digest, e.Sig); err != nil {
		return invalidEvent("signature verification failed", err)
	}
	return nil
}

// FindTag returns the first tag whose first element equals name, and
// whether it was found.
func FindTag(tags []Tag, name string) (Tag, bool) {
	for _, t := range tags {
		if len(t) > 0 && t[0] == name {
			return t, true
		}
	}
	return nil, false
}

// HasPTag reports whether tags contains ["p", value].
func HasPTag(tags []Tag, value string) bool {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == "p" && t[1] == value {
			return true
		}
	}
	return false
}
