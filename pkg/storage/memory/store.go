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

// Package memory implements pkg/storage.Store backed by an in-process
// map, for development and test use.
package memory

import (
	"context"
	"sync"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/storage"
)

// Store implements storage.Store with in-memory peer descriptor caching.
type Store struct {
	mu    sync.RWMutex
	peers map[string]*storage.PeerDescriptorEntry

	peerStore *PeerDescriptorStore
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	s := &Store{
		peers: make(map[string]*storage.PeerDescriptorEntry),
	}
	s.peerStore = &PeerDescriptorStore{store: s}
	return s
}

// PeerDescriptorStore returns the peer descriptor store.
func (s *Store) PeerDescriptorStore() storage.PeerDescriptorStore {
	return s.peerStore
}

// Close closes the store (no-op for memory store).
func (s *Store) Close() error {
	return nil
}

// Ping checks the store (always succeeds for memory store).
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Clear removes all data (useful for testing).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = make(map[string]*storage.PeerDescriptorEntry)
}
