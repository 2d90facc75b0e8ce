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

// Package monitor implements the long-running relay subscription that
// discovers peers after bootstrap, reacts to tombstone events with
// deregistration, and exposes an explicit peerWith() command for
// reverse-registering a discovered-but-not-yet-peered connector.
package monitor

import (
	"context"
	"sync"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/relay"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/spsp"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/toon"
)

const defaultHandshakeAmount = "1"

// discoveredPeer is one entry of the monitor's discovered set.
type discoveredPeer struct {
	descriptor event.PeerDescriptor
	source     *event.SignedEvent
}

// Config configures a Monitor.
type Config struct {
	Keys  *identity.KeyPair
	Relay *relay.Client // subscribed for {kinds:[10032]}

	AdminClient  capability.AdminClient
	PacketSender capability.PacketSender

	// SettlementInfo is offered to peers during peerWith's paid handshake.
	SettlementInfo *event.SettlementInfo
	// HandshakeAmount is the paid amount attached to the peerWith
	// handshake request; defaults to "1" (a small nonzero probe, per
	// §4.10 step 6's "paid handshake").
	HandshakeAmount string
	// Codec is the toonEncoder/toonDecoder injection point used by the
	// SPSP handshake; defaults to toon.DefaultCodec{}.
	Codec toon.Codec

	Broadcaster *lifecycle.Broadcaster
	Logger      logger.Logger
}

// Monitor owns the discovered/peered pubkey-keyed sets described in
// §4.10. Event intake is serialised through the relay subscription's
// callback; peerWith is safe to call concurrently with intake and with
// itself.
type Monitor struct {
	cfg      Config
	log      logger.Logger
	myPubkey identity.Pubkey

	mu         sync.Mutex
	discovered map[identity.Pubkey]discoveredPeer
	peered     map[identity.Pubkey]string // pubkey -> peerId
}

// New creates a Monitor, applying configuration defaults.
func New(cfg Config) *Monitor {
	if cfg.HandshakeAmount == "" {
		cfg.HandshakeAmount = defaultHandshakeAmount
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = lifecycle.NewBroadcaster(cfg.Logger)
	}
	if cfg.Codec == nil {
		cfg.Codec = toon.DefaultCodec{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Monitor{
		cfg:        cfg,
		log:        log,
		myPubkey:   cfg.Keys.Pubkey(),
		discovered: make(map[identity.Pubkey]discoveredPeer),
		peered:     make(map[identity.Pubkey]string),
	}
}

// Start subscribes to kind-10032 peer descriptor events on cfg.Relay.
// Unsubscribing (via the returned Subscription's Close) stops event
// intake; any handshake already in flight from a prior peerWith call
// completes but produces no further events.
func (m *Monitor) Start() (*relay.Subscription, error) {
	filter := relay.Filter{Kinds: []int{event.KindPeerDescriptor}}
	return m.cfg.Relay.Subscribe(filter, m.handleEvent, nil)
}

// handleEvent implements §4.10's single-threaded event intake: ignore
// our own events, treat empty content as a tombstone, drop stale
// events, and otherwise record the descriptor and emit PeerDiscovered.
// It never propagates an error; malformed events are dropped silently.
func (m *Monitor) handleEvent(e *event.SignedEvent) {
	pubkey := identity.Pubkey(e.Pubkey)
	if pubkey == m.myPubkey {
		return
	}

	if event.IsTombstone(e) {
		m.handleTombstone(pubkey)
		return
	}

	descriptor, err := event.ParsePeerInfo(e)
	if err != nil {
		m.log.Debug("dropping malformed peer descriptor", logger.String("pubkey", string(pubkey)), logger.Error(err))
		return
	}

	m.mu.Lock()
	if existing, ok := m.discovered[pubkey]; ok && !event.NewerDescriptor(existing.source, e) {
		m.mu.Unlock()
		return
	}
	m.discovered[pubkey] = discoveredPeer{descriptor: descriptor, source: e}
	m.mu.Unlock()

	m.cfg.Broadcaster.Emit(lifecycle.PeerDiscovered{Pubkey: string(pubkey), IlpAddress: descriptor.IlpAddress})
}

func (m *Monitor) handleTombstone(pubkey identity.Pubkey) {
	m.mu.Lock()
	peerID, wasPeered := m.peered[pubkey]
	delete(m.discovered, pubkey)
	if wasPeered {
		delete(m.peered, pubkey)
	}
	m.mu.Unlock()

	if !wasPeered {
		return
	}
	if m.cfg.AdminClient != nil {
		if err := m.cfg.AdminClient.RemovePeer(context.Background(), peerID); err != nil {
			m.log.Warn("removePeer failed on tombstone", logger.String("peerId", peerID), logger.Error(err))
		}
	}
	m.cfg.Broadcaster.Emit(lifecycle.PeerDeregistered{PeerID: peerID, Pubkey: string(pubkey), Reason: "empty-content"})
}

// Result is the outcome of a successful PeerWith call.
type Result struct {
	PeerID     string
	Descriptor event.PeerDescriptor
	ChannelID  string
	Chain      string
}

// PeerWith implements §4.10's explicit peering command: register a
// discovered peer with the local connector and run a small paid SPSP
// handshake. It is idempotent — a pubkey already in peered returns
// immediately as a no-op, so concurrent duplicate calls (or a
// duplicate descriptor event racing a handshake) never double-register.
func (m *Monitor) PeerWith(ctx context.Context, pubkey identity.Pubkey) (Result, error) {
	if m.cfg.AdminClient == nil || m.cfg.PacketSender == nil {
		return Result{}, logger.NewCrosstownError(logger.ErrCodeUnconfigured, "peerWith requires both AdminClient and PacketSender", nil)
	}

	m.mu.Lock()
	if peerID, ok := m.peered[pubkey]; ok {
		descriptor := m.discovered[pubkey].descriptor
		m.mu.Unlock()
		return Result{PeerID: peerID, Descriptor: descriptor}, nil
	}
	entry, ok := m.discovered[pubkey]
	if !ok {
		m.mu.Unlock()
		return Result{}, logger.NewCrosstownError(logger.ErrCodeNotDiscovered, "peerWith called for an undiscovered pubkey", nil)
	}
	peerID := pubkey.Short()
	// Register before handshake so a concurrent duplicate event or call
	// never re-registers the same peer.
	m.peered[pubkey] = peerID
	m.mu.Unlock()

	if err := m.cfg.AdminClient.AddPeer(ctx, capability.AddPeerRequest{
		ID:  peerID,
		URL: entry.descriptor.BtpEndpoint,
		Routes: []capability.Route{
			{Prefix: entry.descriptor.IlpAddress},
		},
	}); err != nil {
		m.log.Warn("addPeer failed during peerWith", logger.String("peerId", peerID), logger.Error(err))
	}
	m.cfg.Broadcaster.Emit(lifecycle.PeerRegistered{PeerID: peerID, Pubkey: string(pubkey), IlpAddress: entry.descriptor.IlpAddress})

	result := Result{PeerID: peerID, Descriptor: entry.descriptor}

	info, err := spsp.RequestSpspInfo(ctx, m.cfg.Keys, pubkey, entry.descriptor.IlpAddress, m.cfg.PacketSender, spsp.RequestOptions{
		Amount:         m.cfg.HandshakeAmount,
		SettlementInfo: m.cfg.SettlementInfo,
		Codec:          m.cfg.Codec,
	})
	if err != nil {
		m.cfg.Broadcaster.Emit(lifecycle.HandshakeFailed{PeerID: peerID, Reason: err.Error()})
		return result, nil
	}

	if info.Settlement != nil {
		if err := m.cfg.AdminClient.AddPeer(ctx, capability.AddPeerRequest{
			ID:  peerID,
			URL: entry.descriptor.BtpEndpoint,
			Routes: []capability.Route{
				{Prefix: entry.descriptor.IlpAddress},
			},
			Settlement: &capability.SettlementConfig{
				Chain:               info.Settlement.NegotiatedChain,
				SettlementAddress:   info.Settlement.SettlementAddress,
				TokenAddress:        info.Settlement.TokenAddress,
				TokenNetworkAddress: info.Settlement.TokenNetworkAddress,
				ChannelID:           info.Settlement.ChannelID,
				SettlementTimeout:   info.Settlement.SettlementTimeout,
			},
		}); err != nil {
			m.log.Warn("settlement addPeer update failed during peerWith", logger.String("peerId", peerID), logger.Error(err))
		}
		if info.Settlement.ChannelID != "" {
			result.ChannelID = info.Settlement.ChannelID
			result.Chain = info.Settlement.NegotiatedChain
			m.cfg.Broadcaster.Emit(lifecycle.ChannelOpened{PeerID: peerID, ChannelID: info.Settlement.ChannelID, Chain: info.Settlement.NegotiatedChain})
		}
	}

	return result, nil
}

// GetDiscoveredPeers returns every pubkey in discovered that is not
// yet peered.
func (m *Monitor) GetDiscoveredPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.discovered))
	for pubkey := range m.discovered {
		if _, peered := m.peered[pubkey]; !peered {
			out = append(out, string(pubkey))
		}
	}
	return out
}

// IsPeered reports whether pubkey is currently registered.
func (m *Monitor) IsPeered(pubkey identity.Pubkey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.peered[pubkey]
	return ok
}
