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
	"encoding/json"
	"fmt"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

// PeerDescriptor is the kind-10032 payload embedded in a peer-info event's
// content. An empty content on the wrapping event acts as a tombstone and
// is represented separately (ParsePeerInfo never returns a descriptor with
// no fields set for a tombstone; callers check event.Content == "" first).
type PeerDescriptor struct {
	IlpAddress          string            `json:"ilpAddress"`
	BtpEndpoint         string            `json:"btpEndpoint"`
	AssetCode           string            `json:"assetCode"`
	AssetScale          int               `json:"assetScale"`
	SupportedChains     []string          `json:"supportedChains,omitempty"`
	SettlementAddresses map[string]string `json:"settlementAddresses,omitempty"`
	PreferredTokens     map[string]string `json:"preferredTokens,omitempty"`
	TokenNetworks       map[string]string `json:"tokenNetworks,omitempty"`
}

// BuildPeerInfoEvent builds and signs a kind-10032 event. Peer descriptors
// are public: content is plain JSON, never encrypted.
func BuildPeerInfoEvent(kp *identity.KeyPair, createdAt int64, descriptor PeerDescriptor) (*SignedEvent, error) {
	content, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("marshal peer descriptor: %w", err)
	}
	return build(kp, KindPeerDescriptor, createdAt, nil, string(content))
}

// BuildTombstoneEvent builds a kind-10032 event with empty content, which
// signals the author's departure from the network.
func BuildTombstoneEvent(kp *identity.KeyPair, createdAt int64) (*SignedEvent, error) {
	return build(kp, KindPeerDescriptor, createdAt, nil, "")
}

// ParsePeerInfo verifies e's signature and parses its content as a
// PeerDescriptor. Callers must check e.Content == "" (tombstone) before
// calling this, since a tombstone has no descriptor to parse.
func ParsePeerInfo(e *SignedEvent) (PeerDescriptor, error) {
	var descriptor PeerDescriptor
	if e.Kind != KindPeerDescriptor {
		return descriptor, invalidEvent(fmt.Sprintf("unexpected kind %d, want %d", e.Kind, KindPeerDescriptor), nil)
	}
	if err := Verify(e); err != nil {
		return descriptor, err
	}
	if e.Content == "" {
		return descriptor, invalidEvent("tombstone event has no descriptor", nil)
	}
	if err := json.Unmarshal([]byte(e.Content), &descriptor); err != nil {
		return descriptor, invalidEvent("malformed peer descriptor JSON", err)
	}
	if descriptor.IlpAddress == "" || descriptor.BtpEndpoint == "" {
		return descriptor, invalidEvent("peer descriptor missing required fields", nil)
	}
	return descriptor, nil
}

// IsTombstone reports whether e is a peer-deregistration signal: a
// kind-10032 event with empty content.
func IsTombstone(e *SignedEvent) bool {
	return e.Kind == KindPeerDescriptor && e.Content == ""
}

// NewerDescriptor reports whether candidate supersedes current per the
// PeerDescriptor lifecycle rule: compare createdAt, then id lexicographically
// on tie.
func NewerDescriptor(current, candidate *SignedEvent) bool {
	if candidate.CreatedAt != current.CreatedAt {
		return candidate.CreatedAt > current.CreatedAt
	}
	return candidate.ID > current.ID
}
