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

package lifecycle_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
)

func TestBroadcasterDeliversEventsToAllListeners(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)

	var mu sync.Mutex
	var receivedA, receivedB []lifecycle.Event

	b.Subscribe(func(e lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		receivedA = append(receivedA, e)
	})
	b.Subscribe(func(e lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		receivedB = append(receivedB, e)
	})

	b.Emit(lifecycle.PhaseChanged{From: lifecycle.Discovering, To: lifecycle.Registering})
	b.Emit(lifecycle.Ready{PeerCount: 2, ChannelCount: 1})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, receivedA, 2)
	require.Len(t, receivedB, 2)
	assert.Equal(t, lifecycle.PhaseChanged{From: lifecycle.Discovering, To: lifecycle.Registering}, receivedA[0])
	assert.Equal(t, lifecycle.Ready{PeerCount: 2, ChannelCount: 1}, receivedA[1])
}

func TestBroadcasterIsolatesPanickingListener(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)

	var sawEvent bool
	b.Subscribe(func(e lifecycle.Event) {
		panic("listener exploded")
	})
	b.Subscribe(func(e lifecycle.Event) {
		sawEvent = true
	})

	assert.NotPanics(t, func() {
		b.Emit(lifecycle.HandshakeFailed{PeerID: "nostr-abc", Reason: "timeout"})
	})
	assert.True(t, sawEvent)
}

func TestLifecycleEventTypeSwitch(t *testing.T) {
	events := []lifecycle.Event{
		lifecycle.PeerDiscovered{Pubkey: "abc", IlpAddress: "g.peer"},
		lifecycle.ChannelOpened{PeerID: "nostr-abc", ChannelID: "0xCH", Chain: "evm:base:8453"},
	}

	var discovered, channelOpened int
	for _, e := range events {
		switch e.(type) {
		case lifecycle.PeerDiscovered:
			discovered++
		case lifecycle.ChannelOpened:
			channelOpened++
		default:
			t.Fatalf("unexpected event type %T", e)
		}
	}
	assert.Equal(t, 1, discovered)
	assert.Equal(t, 1, channelOpened)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "discovering", lifecycle.Discovering.String())
	assert.Equal(t, "ready", lifecycle.Ready.String())
	assert.Equal(t, "unknown", lifecycle.Phase(99).String())
}
