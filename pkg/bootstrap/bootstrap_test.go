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

package bootstrap_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/bootstrap"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/peers"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/toon"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// peerRelayStub serves a single peer's own kind-10032 descriptor for
// any REQ and records any EVENT it is sent.
type peerRelayStub struct {
	descriptor *event.SignedEvent
	mu         sync.Mutex
	received   []*event.SignedEvent
}

func (s *peerRelayStub) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var frame []json.RawMessage
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if len(frame) == 0 {
			continue
		}
		var kind string
		_ = json.Unmarshal(frame[0], &kind)
		switch kind {
		case "REQ":
			var subID string
			_ = json.Unmarshal(frame[1], &subID)
			if s.descriptor != nil {
				_ = conn.WriteJSON([]interface{}{"EVENT", subID, s.descriptor})
			}
			_ = conn.WriteJSON([]interface{}{"EOSE", subID})
		case "EVENT":
			var e event.SignedEvent
			_ = json.Unmarshal(frame[1], &e)
			s.mu.Lock()
			s.received = append(s.received, &e)
			s.mu.Unlock()
			_ = conn.WriteJSON([]interface{}{"OK", e.ID, true, ""})
		case "CLOSE":
		}
	}
}

func startPeerRelayStub(t *testing.T, descriptor *event.SignedEvent) (string, *peerRelayStub, func()) {
	t.Helper()
	stub := &peerRelayStub{descriptor: descriptor}
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return wsURL, stub, server.Close
}

func mustPeerDescriptorEvent(t *testing.T, kp *identity.KeyPair, ilpAddress, btpEndpoint string) *event.SignedEvent {
	t.Helper()
	ev, err := event.BuildPeerInfoEvent(kp, time.Now().Unix(), event.PeerDescriptor{
		IlpAddress:  ilpAddress,
		BtpEndpoint: btpEndpoint,
	})
	require.NoError(t, err)
	return ev
}

func TestBootstrapEmptyPeerListReachesReadyImmediately(t *testing.T) {
	myKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	var events []lifecycle.Event
	var mu sync.Mutex
	broadcaster := lifecycle.NewBroadcaster(nil)
	broadcaster.Subscribe(func(e lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	orch := bootstrap.New(bootstrap.Config{
		Keys:        myKeys,
		Broadcaster: broadcaster,
	})

	results := orch.Bootstrap(context.Background(), nil)
	assert.Empty(t, results)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, lifecycle.PhaseChanged{From: lifecycle.Discovering, To: lifecycle.Registering}, events[0])
	assert.Equal(t, lifecycle.PhaseChanged{From: lifecycle.Registering, To: lifecycle.Ready}, events[1])
	assert.Equal(t, lifecycle.Ready{PeerCount: 0, ChannelCount: 0}, events[2])
}

func TestBootstrapRegistersPeerWithoutPacketSender(t *testing.T) {
	myKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	descriptor := mustPeerDescriptorEvent(t, peerKeys, "g.peer", "ws://peer-btp")
	wsURL, stub, stop := startPeerRelayStub(t, descriptor)
	defer stop()

	admin := &capability.MockAdminClient{}

	orch := bootstrap.New(bootstrap.Config{
		Keys:        myKeys,
		AdminClient: admin,
		KnownPeers: []peers.KnownPeer{
			{Pubkey: string(peerKeys.Pubkey()), RelayURL: wsURL},
		},
		Broadcaster: lifecycle.NewBroadcaster(nil),
	})

	results := orch.Bootstrap(context.Background(), nil)
	require.Len(t, results, 1)
	assert.Equal(t, "g.peer", results[0].Descriptor.IlpAddress)
	assert.True(t, admin.HasPeer(peerKeys.Pubkey().Short()))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.received, 1, "should announce directly to peer relay when no PacketSender is configured")
	assert.Equal(t, event.KindPeerDescriptor, stub.received[0].Kind)
}

func TestBootstrapHandshakeAndAnnounceWithPacketSender(t *testing.T) {
	myKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	peerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	descriptor := mustPeerDescriptorEvent(t, peerKeys, "g.peer", "ws://peer-btp")
	wsURL, _, stop := startPeerRelayStub(t, descriptor)
	defer stop()

	admin := &capability.MockAdminClient{}
	sender := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			raw, err := base64.StdEncoding.DecodeString(req.Data)
			require.NoError(t, err)
			ev, err := toon.Decode(raw)
			require.NoError(t, err)

			if ev.Kind == event.KindSpspRequest {
				parsed, err := event.ParseSpspRequest(ev, peerKeys, myKeys.Pubkey())
				require.NoError(t, err)
				respEvent, err := event.BuildSpspResponse(peerKeys, myKeys.Pubkey(), time.Now().Unix(), event.SpspResponse{
					RequestID:          parsed.RequestID,
					DestinationAccount: "g.peer.account",
					SharedSecret:       "shared",
				})
				require.NoError(t, err)
				encoded, err := toon.Encode(respEvent)
				require.NoError(t, err)
				return capability.PacketSendResult{Accepted: true, Data: base64.StdEncoding.EncodeToString(encoded)}, nil
			}
			// Announce packet: just accept.
			return capability.PacketSendResult{Accepted: true}, nil
		},
	}

	var events []lifecycle.Event
	var mu sync.Mutex
	broadcaster := lifecycle.NewBroadcaster(nil)
	broadcaster.Subscribe(func(e lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	orch := bootstrap.New(bootstrap.Config{
		Keys:          myKeys,
		OwnDescriptor: event.PeerDescriptor{IlpAddress: "g.me", BtpEndpoint: "ws://my-btp"},
		AdminClient:   admin,
		PacketSender:  sender,
		KnownPeers: []peers.KnownPeer{
			{Pubkey: string(peerKeys.Pubkey()), RelayURL: wsURL},
		},
		Broadcaster: broadcaster,
	})

	results := orch.Bootstrap(context.Background(), nil)
	require.Len(t, results, 1)

	mu.Lock()
	defer mu.Unlock()
	var sawAnnounced bool
	for _, e := range events {
		if _, ok := e.(lifecycle.Announced); ok {
			sawAnnounced = true
		}
	}
	assert.True(t, sawAnnounced)
}

func TestBootstrapNonFatalPerPeerFailure(t *testing.T) {
	myKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	badPeerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	goodPeerKeys, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	descriptor := mustPeerDescriptorEvent(t, goodPeerKeys, "g.good", "ws://good-btp")
	goodURL, _, stopGood := startPeerRelayStub(t, descriptor)
	defer stopGood()

	orch := bootstrap.New(bootstrap.Config{
		Keys: myKeys,
		KnownPeers: []peers.KnownPeer{
			{Pubkey: string(badPeerKeys.Pubkey()), RelayURL: "ws://127.0.0.1:1/nonexistent"},
			{Pubkey: string(goodPeerKeys.Pubkey()), RelayURL: goodURL},
		},
		Broadcaster: lifecycle.NewBroadcaster(nil),
	})

	results := orch.Bootstrap(context.Background(), nil)
	require.Len(t, results, 1, "the unreachable peer should be dropped without aborting the others")
	assert.Equal(t, "g.good", results[0].Descriptor.IlpAddress)
}
