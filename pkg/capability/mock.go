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

package capability

import (
	"context"
	"strconv"
	"sync"
)

// MockPacketSender is a test double for PacketSender: it captures every
// request sent and, absent a SendFunc override, accepts unconditionally.
type MockPacketSender struct {
	SendFunc func(ctx context.Context, req PacketSendRequest) (PacketSendResult, error)

	mu   sync.Mutex
	Sent []PacketSendRequest
}

func (m *MockPacketSender) Send(ctx context.Context, req PacketSendRequest) (PacketSendResult, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, req)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return PacketSendResult{Accepted: true}, nil
}

// LastSent returns the most recently sent request, or nil if none.
func (m *MockPacketSender) LastSent() *PacketSendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	last := m.Sent[len(m.Sent)-1]
	return &last
}

// MockAdminClient is a test double for AdminClient: it captures
// AddPeer/RemovePeer calls in an id-keyed table mirroring the real
// idempotent-by-id overwrite semantics.
type MockAdminClient struct {
	AddPeerFunc    func(ctx context.Context, req AddPeerRequest) error
	RemovePeerFunc func(ctx context.Context, id string) error

	mu    sync.Mutex
	Peers map[string]AddPeerRequest
}

func (m *MockAdminClient) AddPeer(ctx context.Context, req AddPeerRequest) error {
	m.mu.Lock()
	if m.Peers == nil {
		m.Peers = make(map[string]AddPeerRequest)
	}
	m.Peers[req.ID] = req
	m.mu.Unlock()

	if m.AddPeerFunc != nil {
		return m.AddPeerFunc(ctx, req)
	}
	return nil
}

func (m *MockAdminClient) RemovePeer(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.Peers, id)
	m.mu.Unlock()

	if m.RemovePeerFunc != nil {
		return m.RemovePeerFunc(ctx, id)
	}
	return nil
}

// HasPeer reports whether id is currently registered.
func (m *MockAdminClient) HasPeer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Peers[id]
	return ok
}

// MockChannelClient is a test double for ChannelClient: OpenChannel
// assigns a sequential channel id and GetChannelState reports whatever
// status was last set for it (default ChannelOpen, so tests that don't
// care about polling converge immediately).
type MockChannelClient struct {
	OpenChannelFunc     func(ctx context.Context, req OpenChannelRequest) (OpenChannelResult, error)
	GetChannelStateFunc func(ctx context.Context, channelID string) (ChannelState, error)

	mu       sync.Mutex
	nextID   int
	Channels map[string]ChannelState
}

func (m *MockChannelClient) OpenChannel(ctx context.Context, req OpenChannelRequest) (OpenChannelResult, error) {
	if m.OpenChannelFunc != nil {
		return m.OpenChannelFunc(ctx, req)
	}

	m.mu.Lock()
	m.nextID++
	id := req.Chain + "-channel-" + strconv.Itoa(m.nextID)
	if m.Channels == nil {
		m.Channels = make(map[string]ChannelState)
	}
	m.Channels[id] = ChannelState{ChannelID: id, Status: ChannelOpen, Chain: req.Chain}
	m.mu.Unlock()

	return OpenChannelResult{ChannelID: id, Status: ChannelOpening}, nil
}

func (m *MockChannelClient) GetChannelState(ctx context.Context, channelID string) (ChannelState, error) {
	if m.GetChannelStateFunc != nil {
		return m.GetChannelStateFunc(ctx, channelID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Channels[channelID], nil
}
