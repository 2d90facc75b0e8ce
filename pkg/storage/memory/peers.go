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

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/storage"
)

// PeerDescriptorStore implements storage.PeerDescriptorStore.
type PeerDescriptorStore struct {
	store *Store
}

func (p *PeerDescriptorStore) Upsert(ctx context.Context, entry *storage.PeerDescriptorEntry) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	entryCopy := *entry
	entryCopy.UpdatedAt = time.Now()
	p.store.peers[entry.Pubkey] = &entryCopy
	return nil
}

func (p *PeerDescriptorStore) Get(ctx context.Context, pubkey string) (*storage.PeerDescriptorEntry, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	entry, exists := p.store.peers[pubkey]
	if !exists {
		return nil, fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	entryCopy := *entry
	return &entryCopy, nil
}

func (p *PeerDescriptorStore) Delete(ctx context.Context, pubkey string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if _, exists := p.store.peers[pubkey]; !exists {
		return fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	delete(p.store.peers, pubkey)
	return nil
}

func (p *PeerDescriptorStore) List(ctx context.Context) ([]*storage.PeerDescriptorEntry, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	entries := make([]*storage.PeerDescriptorEntry, 0, len(p.store.peers))
	for _, entry := range p.store.peers {
		entryCopy := *entry
		entries = append(entries, &entryCopy)
	}
	return entries, nil
}

func (p *PeerDescriptorStore) MarkPeered(ctx context.Context, pubkey string, peered bool, peerID string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	entry, exists := p.store.peers[pubkey]
	if !exists {
		return fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	entry.Peered = peered
	entry.PeerID = peerID
	entry.UpdatedAt = time.Now()
	return nil
}

func (p *PeerDescriptorStore) Count(ctx context.Context) (int64, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	return int64(len(p.store.peers)), nil
}
