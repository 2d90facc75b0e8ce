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

// Internal test package: handleEvent is unexported, and exercising it
// directly (rather than via a live relay subscription) keeps these
// tests focused on the monitor's state machine.
package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
)

func newTestMonitor(t *testing.T, admin capability.AdminClient, sender capability.PacketSender) (*Monitor, *identity.KeyPair, *[]lifecycle.Event) {
	t.Helper()
	myKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	events := &[]lifecycle.Event{}
	broadcaster := lifecycle.NewBroadcaster(nil)
	broadcaster.Subscribe(func(e lifecycle.Event) {
		*events = append(*events, e)
	})

	m := New(Config{
		Keys:         myKeys,
		AdminClient:  admin,
		PacketSender: sender,
		Broadcaster:  broadcaster,
	})
	return m, myKeys, events
}

func descriptorEvent(t *testing.T, kp *identity.KeyPair, createdAt int64, ilpAddress string) *event.SignedEvent {
	t.Helper()
	ev, err := event.BuildPeerInfoEvent(kp, createdAt, event.PeerDescriptor{IlpAddress: ilpAddress, BtpEndpoint: "ws://peer-btp"})
	require.NoError(t, err)
	return ev
}

func TestMonitorIgnoresOwnEvents(t *testing.T) {
	m, myKeys, _ := newTestMonitor(t, nil, nil)
	own := descriptorEvent(t, myKeys, time.Now().Unix(), "g.me")

	m.handleEvent(own)

	assert.Empty(t, m.GetDiscoveredPeers())
}

func TestMonitorDiscoversPeerAndEmitsEvent(t *testing.T) {
	m, _, events := newTestMonitor(t, nil, nil)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	ev := descriptorEvent(t, peerKeys, time.Now().Unix(), "g.peer")
	m.handleEvent(ev)

	discovered := m.GetDiscoveredPeers()
	require.Len(t, discovered, 1)
	assert.Equal(t, string(peerKeys.Pubkey()), discovered[0])

	require.Len(t, *events, 1)
	pd, ok := (*events)[0].(lifecycle.PeerDiscovered)
	require.True(t, ok)
	assert.Equal(t, "g.peer", pd.IlpAddress)
}

func TestMonitorIgnoresStaleEvent(t *testing.T) {
	m, _, events := newTestMonitor(t, nil, nil)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	fresh := descriptorEvent(t, peerKeys, 2000, "g.fresh")
	stale := descriptorEvent(t, peerKeys, 1000, "g.stale")

	m.handleEvent(fresh)
	m.handleEvent(stale)

	discovered := m.GetDiscoveredPeers()
	require.Len(t, discovered, 1)
	require.Len(t, *events, 1, "the stale event must not re-emit PeerDiscovered")
}

func TestMonitorTieBreaksEqualCreatedAtByLargerID(t *testing.T) {
	m, _, events := newTestMonitor(t, nil, nil)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	const createdAt = 1500
	a := descriptorEvent(t, peerKeys, createdAt, "g.candidate-a")
	b := descriptorEvent(t, peerKeys, createdAt, "g.candidate-b")

	smaller, larger := a, b
	if smaller.ID > larger.ID {
		smaller, larger = b, a
	}

	// Smaller id arrives first, then the larger id at the same createdAt:
	// it must supersede.
	m.handleEvent(smaller)
	m.handleEvent(larger)

	m.mu.Lock()
	got := m.discovered[peerKeys.Pubkey()].source.ID
	m.mu.Unlock()
	assert.Equal(t, larger.ID, got, "the larger id at an equal createdAt must win")
	require.Len(t, *events, 2, "both arrivals produce a PeerDiscovered since each superseded the prior entry")

	// Reset and reverse the arrival order: the larger id arrives first, so
	// the smaller id at the same createdAt must be ignored.
	m2, _, events2 := newTestMonitor(t, nil, nil)
	m2.handleEvent(larger)
	m2.handleEvent(smaller)

	m2.mu.Lock()
	got2 := m2.discovered[peerKeys.Pubkey()].source.ID
	m2.mu.Unlock()
	assert.Equal(t, larger.ID, got2, "a smaller id at an equal createdAt must not supersede")
	require.Len(t, *events2, 1, "the superseded-by-smaller-id event must not re-emit PeerDiscovered")
}

func TestMonitorTombstoneOnUnregisteredPeerJustRemovesFromDiscovered(t *testing.T) {
	m, _, events := newTestMonitor(t, nil, nil)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerKeys, 1000, "g.peer"))
	tombstone, err := event.BuildTombstoneEvent(peerKeys, 2000)
	require.NoError(t, err)
	m.handleEvent(tombstone)

	assert.Empty(t, m.GetDiscoveredPeers())
	require.Len(t, *events, 1, "no PeerDeregistered should fire for a peer that was never peered")
}

func TestMonitorTombstoneOnPeeredPeerDeregisters(t *testing.T) {
	admin := &capability.MockAdminClient{}
	sender := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			return capability.PacketSendResult{Accepted: false, Code: "F06", Message: "no route"}, nil
		},
	}
	m, _, events := newTestMonitor(t, admin, sender)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerKeys, 1000, "g.peer"))
	_, err = m.PeerWith(context.Background(), peerKeys.Pubkey())
	require.NoError(t, err)
	assert.True(t, m.IsPeered(peerKeys.Pubkey()))

	tombstone, err := event.BuildTombstoneEvent(peerKeys, 2000)
	require.NoError(t, err)
	m.handleEvent(tombstone)

	assert.False(t, m.IsPeered(peerKeys.Pubkey()))
	assert.False(t, admin.HasPeer(peerKeys.Pubkey().Short()))

	var sawDeregistered bool
	for _, e := range *events {
		if dereg, ok := e.(lifecycle.PeerDeregistered); ok {
			sawDeregistered = true
			assert.Equal(t, "empty-content", dereg.Reason)
		}
	}
	assert.True(t, sawDeregistered)
}

func TestPeerWithFailsWhenUndiscovered(t *testing.T) {
	admin := &capability.MockAdminClient{}
	sender := &capability.MockPacketSender{}
	m, _, _ := newTestMonitor(t, admin, sender)

	unknown, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	_, err = m.PeerWith(context.Background(), unknown.Pubkey())
	require.Error(t, err)
}

func TestPeerWithFailsWhenUnconfigured(t *testing.T) {
	m, _, _ := newTestMonitor(t, nil, nil)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerKeys, 1000, "g.peer"))
	_, err = m.PeerWith(context.Background(), peerKeys.Pubkey())
	require.Error(t, err)
}

func TestPeerWithIsIdempotent(t *testing.T) {
	admin := &capability.MockAdminClient{}
	var sendCount int
	sender := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			sendCount++
			return capability.PacketSendResult{Accepted: false, Code: "F06", Message: "no route"}, nil
		},
	}
	m, _, events := newTestMonitor(t, admin, sender)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerKeys, 1000, "g.peer"))

	_, err = m.PeerWith(context.Background(), peerKeys.Pubkey())
	require.NoError(t, err)
	_, err = m.PeerWith(context.Background(), peerKeys.Pubkey())
	require.NoError(t, err)

	var registeredCount int
	for _, e := range *events {
		if _, ok := e.(lifecycle.PeerRegistered); ok {
			registeredCount++
		}
	}
	assert.Equal(t, 1, registeredCount, "peerWith must emit exactly one PeerRegistered across duplicate calls")
	assert.LessOrEqual(t, sendCount, 1)
}

func TestPeerWithEmitsHandshakeFailedButStaysRegisteredOnReject(t *testing.T) {
	admin := &capability.MockAdminClient{}
	sender := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			return capability.PacketSendResult{Accepted: false, Code: "F06", Message: "insufficient amount"}, nil
		},
	}
	m, _, events := newTestMonitor(t, admin, sender)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerKeys, 1000, "g.peer"))
	_, err = m.PeerWith(context.Background(), peerKeys.Pubkey())
	require.NoError(t, err)

	assert.True(t, m.IsPeered(peerKeys.Pubkey()), "peer stays registered on a non-fatal handshake failure")

	var sawFailed bool
	for _, e := range *events {
		if _, ok := e.(lifecycle.HandshakeFailed); ok {
			sawFailed = true
		}
	}
	assert.True(t, sawFailed)
}

func TestGetDiscoveredPeersExcludesPeered(t *testing.T) {
	admin := &capability.MockAdminClient{}
	sender := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			return capability.PacketSendResult{Accepted: false, Code: "F06", Message: "no route"}, nil
		},
	}
	m, _, _ := newTestMonitor(t, admin, sender)
	peerA, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	peerB, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	m.handleEvent(descriptorEvent(t, peerA, 1000, "g.a"))
	m.handleEvent(descriptorEvent(t, peerB, 1000, "g.b"))

	_, err = m.PeerWith(context.Background(), peerA.Pubkey())
	require.NoError(t, err)

	discovered := m.GetDiscoveredPeers()
	require.Len(t, discovered, 1)
	assert.Equal(t, string(peerB.Pubkey()), discovered[0])
}
