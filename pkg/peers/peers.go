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

// Package peers aggregates the pre-handshake peer set from genesis
// peers, an optional remote registry, and caller-supplied JSON,
// deduplicating by pubkey with later sources overriding earlier ones.
package peers

import (
	"context"
	"encoding/json"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

// KnownPeer is the pre-handshake tuple produced by the aggregator.
type KnownPeer struct {
	Pubkey      string `json:"pubkey"`
	RelayURL    string `json:"relayUrl"`
	IlpAddress  string `json:"ilpAddress,omitempty"`
	BtpEndpoint string `json:"btpEndpoint,omitempty"`
}

// Valid reports whether the peer's pubkey is well-formed.
func (p KnownPeer) Valid() bool {
	return identity.Pubkey(p.Pubkey).Valid()
}

// RegistryClient is the capability a remote peer registry must expose.
// registryclient.Client implements it over HTTP+JWT.
type RegistryClient interface {
	FetchPeers(ctx context.Context) ([]KnownPeer, error)
}

// Options configures LoadPeers.
type Options struct {
	Registry        RegistryClient
	RegistryEnabled bool
}

// LoadPeers merges genesis peers, an optional remote registry fetch,
// and additionalJSON (a JSON array of KnownPeer), deduplicating by
// pubkey. Later sources override earlier ones; first-insertion order
// is preserved for iteration.
func LoadPeers(ctx context.Context, additionalJSON []byte, opts Options) ([]KnownPeer, error) {
	merged := newOrderedPeerSet()
	merged.mergeAll(GenesisPeers())

	if opts.RegistryEnabled && opts.Registry != nil {
		fetched, err := opts.Registry.FetchPeers(ctx)
		if err != nil {
			logger.Warn("remote peer registry fetch failed, continuing with known peers",
				logger.Error(err))
		} else {
			merged.mergeAll(fetched)
		}
	}

	if len(additionalJSON) > 0 {
		var additional []KnownPeer
		if err := json.Unmarshal(additionalJSON, &additional); err != nil {
			return nil, logger.NewCrosstownError(logger.ErrCodeInvalidArg, "malformed additional peers JSON", err)
		}
		merged.mergeAll(additional)
	}

	return merged.ordered(), nil
}

type orderedPeerSet struct {
	order []string
	byKey map[string]KnownPeer
}

func newOrderedPeerSet() *orderedPeerSet {
	return &orderedPeerSet{byKey: make(map[string]KnownPeer)}
}

func (s *orderedPeerSet) mergeAll(peers []KnownPeer) {
	for _, p := range peers {
		if _, exists := s.byKey[p.Pubkey]; !exists {
			s.order = append(s.order, p.Pubkey)
		}
		s.byKey[p.Pubkey] = p
	}
}

func (s *orderedPeerSet) ordered() []KnownPeer {
	out := make([]KnownPeer, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}
