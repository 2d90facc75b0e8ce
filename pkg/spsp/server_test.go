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

package spsp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// capturingRelay acks every publish and records the published events,
// standing in for the relay a real SPSP server would publish its
// response to.
type capturingRelay struct {
	published chan *event.SignedEvent
}

func (c *capturingRelay) handler(w http.ResponseWriter, r *http.Request) {
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
		if kind == "EVENT" {
			var e event.SignedEvent
			_ = json.Unmarshal(frame[1], &e)
			_ = conn.WriteJSON([]interface{}{"OK", e.ID, true, ""})
			c.published <- &e
		}
	}
}

func startCapturingRelay(t *testing.T) (*relay.Client, chan *event.SignedEvent, func()) {
	t.Helper()
	cr := &capturingRelay{published: make(chan *event.SignedEvent, 4)}
	server := httptest.NewServer(http.HandlerFunc(cr.handler))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := relay.Connect(ctx, wsURL)
	require.NoError(t, err)

	return client, cr.published, func() {
		client.Close()
		server.Close()
	}
}

func TestServeSpspRequestsRespondsWithBasicFields(t *testing.T) {
	responder, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	requester, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	publishClient, published, stop := startCapturingRelay(t)
	defer stop()

	reqEvent, requestID, err := event.BuildSpspRequest(requester, responder.Pubkey(), time.Now().Unix(), nil)
	require.NoError(t, err)

	cfg := ServerConfig{
		Keys:          responder,
		PublishRelays: []*relay.Client{publishClient},
		Generator: func(senderPubkey identity.Pubkey, req event.SpspRequest) (Info, error) {
			return Info{DestinationAccount: "g.responder.xyz", SharedSecret: "shared"}, nil
		},
	}

	handleSpspRequestEvent(context.Background(), reqEvent, cfg, cfg.PublishRelays, logger.NewDefaultLogger())

	select {
	case e := <-published:
		resp, err := event.ParseSpspResponse(e, requester, responder.Pubkey())
		require.NoError(t, err)
		assert.Equal(t, requestID, resp.RequestID)
		assert.Equal(t, "g.responder.xyz", resp.DestinationAccount)
		assert.Empty(t, resp.NegotiatedChain)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published response")
	}
}

func TestServeSpspRequestsNegotiatesSettlementWhenConfigured(t *testing.T) {
	responder, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	requester, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	publishClient, published, stop := startCapturingRelay(t)
	defer stop()

	reqEvent, _, err := event.BuildSpspRequest(requester, responder.Pubkey(), time.Now().Unix(), &event.SettlementInfo{
		SupportedChains:     []string{"evm:base:8453"},
		SettlementAddresses: map[string]string{"evm:base:8453": "0xPeerAddr"},
	})
	require.NoError(t, err)

	cfg := ServerConfig{
		Keys:          responder,
		PublishRelays: []*relay.Client{publishClient},
		Generator: func(senderPubkey identity.Pubkey, req event.SpspRequest) (Info, error) {
			return Info{DestinationAccount: "g.responder.xyz", SharedSecret: "shared"}, nil
		},
		Settlement: &SettlementNegotiationConfig{
			OwnSupportedChains:     []string{"evm:base:8453"},
			OwnSettlementAddresses: map[string]string{"evm:base:8453": "0xMyAddr"},
			PollInterval:           time.Millisecond,
			ChannelOpenTimeout:     time.Second,
		},
		ChannelClient: &capability.MockChannelClient{},
	}

	handleSpspRequestEvent(context.Background(), reqEvent, cfg, cfg.PublishRelays, logger.NewDefaultLogger())

	select {
	case e := <-published:
		resp, err := event.ParseSpspResponse(e, requester, responder.Pubkey())
		require.NoError(t, err)
		assert.Equal(t, "evm:base:8453", resp.NegotiatedChain)
		assert.Equal(t, "0xMyAddr", resp.SettlementAddress)
		assert.NotEmpty(t, resp.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published response")
	}
}

func TestServeSpspRequestsDegradesWhenChannelOpenFails(t *testing.T) {
	responder, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	requester, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	publishClient, published, stop := startCapturingRelay(t)
	defer stop()

	reqEvent, _, err := event.BuildSpspRequest(requester, responder.Pubkey(), time.Now().Unix(), &event.SettlementInfo{
		SupportedChains:     []string{"evm:base:8453"},
		SettlementAddresses: map[string]string{"evm:base:8453": "0xPeerAddr"},
	})
	require.NoError(t, err)

	cfg := ServerConfig{
		Keys:          responder,
		PublishRelays: []*relay.Client{publishClient},
		Generator: func(senderPubkey identity.Pubkey, req event.SpspRequest) (Info, error) {
			return Info{DestinationAccount: "g.responder.xyz", SharedSecret: "shared"}, nil
		},
		Settlement: &SettlementNegotiationConfig{
			OwnSupportedChains: []string{"evm:base:8453"},
		},
		ChannelClient: &capability.MockChannelClient{
			OpenChannelFunc: func(ctx context.Context, req capability.OpenChannelRequest) (capability.OpenChannelResult, error) {
				return capability.OpenChannelResult{}, assert.AnError
			},
		},
	}

	handleSpspRequestEvent(context.Background(), reqEvent, cfg, cfg.PublishRelays, logger.NewDefaultLogger())

	select {
	case e := <-published:
		resp, err := event.ParseSpspResponse(e, requester, responder.Pubkey())
		require.NoError(t, err)
		assert.Empty(t, resp.NegotiatedChain)
		assert.Equal(t, "g.responder.xyz", resp.DestinationAccount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published response")
	}
}

func TestServeSpspRequestsDropsMalformedEventSilently(t *testing.T) {
	responder, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	otherSender, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	publishClient, published, stop := startCapturingRelay(t)
	defer stop()

	// Addressed to a different recipient: parsing will fail and the
	// event must be dropped without publishing anything.
	unrelated, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	reqEvent, _, err := event.BuildSpspRequest(otherSender, unrelated.Pubkey(), time.Now().Unix(), nil)
	require.NoError(t, err)

	cfg := ServerConfig{
		Keys:          responder,
		PublishRelays: []*relay.Client{publishClient},
		Generator: func(senderPubkey identity.Pubkey, req event.SpspRequest) (Info, error) {
			t.Fatal("generator should not be called for a malformed/misaddressed event")
			return Info{}, nil
		},
	}

	handleSpspRequestEvent(context.Background(), reqEvent, cfg, cfg.PublishRelays, logger.NewDefaultLogger())

	select {
	case <-published:
		t.Fatal("expected no published response")
	case <-time.After(200 * time.Millisecond):
	}
}
