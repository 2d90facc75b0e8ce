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

// Package bootstrap implements the multi-phase orchestrator that turns
// a set of known peers into registered, optionally paid-handshaked and
// announced connector peers: discovering -> registering ->
// [handshaking -> announcing]? -> ready.
package bootstrap

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/peers"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/relay"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/spsp"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/toon"
)

const (
	defaultQueryTimeout     = 5 * time.Second
	defaultBasePricePerByte = int64(10)
	defaultConcurrency      = 8
)

// Config configures an Orchestrator.
type Config struct {
	Keys          *identity.KeyPair
	OwnDescriptor event.PeerDescriptor

	AdminClient  capability.AdminClient  // optional; AddPeer registration skipped gracefully when nil
	PacketSender capability.PacketSender // optional; handshaking/announcing skipped entirely when nil

	RegistryClient  peers.RegistryClient
	RegistryEnabled bool
	KnownPeers      []peers.KnownPeer

	QueryTimeout     time.Duration // per-peer kind-10032 query deadline; default 5s
	BasePricePerByte int64         // announce pricing; default 10
	Concurrency      int           // bounded per-peer concurrency; default 8

	// SettlementInfo is this node's own settlement posture, offered to
	// peers during the handshake phase's SPSP requests. Settlement
	// negotiation itself is performed by the peer we are handshaking
	// with (see pkg/spsp's NegotiateSettlement, run server-side).
	SettlementInfo *event.SettlementInfo

	// Codec is the toonEncoder/toonDecoder injection point used to
	// encode the announce payload; defaults to toon.DefaultCodec{}.
	Codec toon.Codec

	Broadcaster *lifecycle.Broadcaster
	Logger      logger.Logger
}

// Result is the outcome of successfully bootstrapping with one peer.
type Result struct {
	Peer       peers.KnownPeer
	Descriptor event.PeerDescriptor
	ChannelID  string
	Chain      string
}

// Orchestrator runs the bootstrap state machine described in §4.9.
type Orchestrator struct {
	cfg Config
	log logger.Logger
}

// New creates an Orchestrator, applying configuration defaults.
func New(cfg Config) *Orchestrator {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.BasePricePerByte == 0 {
		cfg.BasePricePerByte = defaultBasePricePerByte
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
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
	return &Orchestrator{cfg: cfg, log: log}
}

// Bootstrap runs discovering through ready once, returning
// the accumulated per-peer results. It never returns an error itself:
// per-peer and per-phase failures are non-fatal and surface only as
// lifecycle events, matching §7's "the orchestrator never throws from
// bootstrap()".
func (o *Orchestrator) Bootstrap(ctx context.Context, additionalPeersJSON []byte) []Result {
	timer := prometheus.NewTimer(metrics.BootstrapDuration)
	defer timer.ObserveDuration()

	phase := lifecycle.Discovering

	discovered, err := peers.LoadPeers(ctx, additionalPeersJSON, peers.Options{
		Registry:        o.cfg.RegistryClient,
		RegistryEnabled: o.cfg.RegistryEnabled,
	})
	if err != nil {
		o.log.Warn("peer discovery failed", logger.Error(err))
	}
	candidates := mergeKnownPeers(discovered, o.cfg.KnownPeers)

	o.transition(&phase, lifecycle.Registering)
	results := o.register(ctx, candidates)

	if o.cfg.PacketSender != nil {
		o.transition(&phase, lifecycle.Handshaking)
		o.handshake(ctx, results)

		o.transition(&phase, lifecycle.Announcing)
		o.announce(ctx, results)
	}

	o.transition(&phase, lifecycle.Ready)
	channelCount := 0
	for _, r := range results {
		if r.ChannelID != "" {
			channelCount++
		}
	}
	o.cfg.Broadcaster.Emit(lifecycle.Ready{PeerCount: len(results), ChannelCount: channelCount})

	return results
}

func (o *Orchestrator) transition(phase *lifecycle.Phase, to lifecycle.Phase) {
	metrics.PhaseTransitions.WithLabelValues(phase.String(), to.String()).Inc()
	o.cfg.Broadcaster.Emit(lifecycle.PhaseChanged{From: *phase, To: to})
	*phase = to
}

// register runs bootstrapWithPeer for every candidate with bounded
// concurrency; one peer's failure never aborts the others (§7
// "non-fatal per-peer").
func (o *Orchestrator) register(ctx context.Context, candidates []peers.KnownPeer) []Result {
	resultsByIndex := make([]*Result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, kp := range candidates {
		i, kp := i, kp
		g.Go(func() error {
			result, err := o.bootstrapWithPeer(gctx, kp)
			if err != nil {
				o.log.Warn("bootstrap with peer failed", logger.String("pubkey", kp.Pubkey), logger.Error(err))
				return nil
			}
			resultsByIndex[i] = result
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(candidates))
	for _, r := range resultsByIndex {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// bootstrapWithPeer implements §4.9's bootstrapWithPeer: fetch the
// peer's own kind-10032 descriptor from its relay, register it with
// the local connector, and — if no PacketSender is configured —
// announce ourselves directly to the peer's relay.
func (o *Orchestrator) bootstrapWithPeer(ctx context.Context, kp peers.KnownPeer) (*Result, error) {
	pubkey := identity.Pubkey(kp.Pubkey)
	if !pubkey.Valid() {
		return nil, logger.NewCrosstownError(logger.ErrCodeInvalidPeer, "malformed peer pubkey", nil)
	}

	client, err := relay.Connect(ctx, kp.RelayURL)
	if err != nil {
		return nil, logger.NewCrosstownError(logger.ErrCodeInvalidPeer, "connect to peer relay", err)
	}
	defer client.Close()

	limit := 1
	events, err := client.Query(ctx, relay.Filter{
		Kinds:   []int{event.KindPeerDescriptor},
		Authors: []string{kp.Pubkey},
		Limit:   limit,
	}, o.cfg.QueryTimeout)
	if err != nil {
		return nil, logger.NewCrosstownError(logger.ErrCodeInvalidPeer, "query peer descriptor", err)
	}
	if len(events) == 0 {
		return nil, logger.NewCrosstownError(logger.ErrCodeNoPeerInfo, "peer published no descriptor", nil)
	}

	best := latestDescriptorEvent(events)
	descriptor, err := event.ParsePeerInfo(best)
	if err != nil {
		return nil, err
	}

	if o.cfg.AdminClient != nil {
		if err := o.cfg.AdminClient.AddPeer(ctx, capability.AddPeerRequest{
			ID:  pubkey.Short(),
			URL: descriptor.BtpEndpoint,
			Routes: []capability.Route{
				{Prefix: descriptor.IlpAddress},
			},
		}); err != nil {
			o.log.Warn("addPeer failed during bootstrap", logger.String("pubkey", kp.Pubkey), logger.Error(err))
		}
	}

	if o.cfg.PacketSender == nil {
		ownEvent, err := event.BuildPeerInfoEvent(o.cfg.Keys, time.Now().Unix(), o.cfg.OwnDescriptor)
		if err == nil {
			if err := client.Publish(ctx, ownEvent); err != nil {
				o.log.Warn("failed to announce to peer relay during bootstrap", logger.String("pubkey", kp.Pubkey), logger.Error(err))
			}
		}
	}

	metrics.PeersRegistered.Inc()
	return &Result{Peer: kp, Descriptor: descriptor}, nil
}

// latestDescriptorEvent picks the descriptor with the largest
// createdAt, tie-broken by the lexicographically largest id, reusing
// pkg/event's NewerDescriptor comparator.
func latestDescriptorEvent(events []*event.SignedEvent) *event.SignedEvent {
	best := events[0]
	for _, e := range events[1:] {
		if event.NewerDescriptor(best, e) {
			best = e
		}
	}
	return best
}

// handshake runs §4.9 step 3: a zero-amount SPSP request per
// registered peer, updating settlement and emitting ChannelOpened /
// HandshakeFailed. Failures are non-fatal.
func (o *Orchestrator) handshake(ctx context.Context, results []Result) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i := range results {
		i := i
		g.Go(func() error {
			r := results[i]
			peerID := identity.Pubkey(r.Peer.Pubkey).Short()

			info, err := spsp.RequestSpspInfo(gctx, o.cfg.Keys, identity.Pubkey(r.Peer.Pubkey), r.Descriptor.IlpAddress, o.cfg.PacketSender, spsp.RequestOptions{
				Amount:         "0",
				SettlementInfo: o.cfg.SettlementInfo,
				Codec:          o.cfg.Codec,
			})
			if err != nil {
				metrics.HandshakesCompleted.WithLabelValues(handshakeOutcome(gctx, err)).Inc()
				o.cfg.Broadcaster.Emit(lifecycle.HandshakeFailed{PeerID: peerID, Reason: err.Error()})
				return nil
			}
			metrics.HandshakesCompleted.WithLabelValues("fulfilled").Inc()

			if info.Settlement != nil && o.cfg.AdminClient != nil {
				if err := o.cfg.AdminClient.AddPeer(gctx, capability.AddPeerRequest{
					ID:  peerID,
					URL: r.Descriptor.BtpEndpoint,
					Routes: []capability.Route{
						{Prefix: r.Descriptor.IlpAddress},
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
					o.log.Warn("settlement addPeer update failed", logger.String("peerId", peerID), logger.Error(err))
				}
			}

			if info.Settlement != nil && info.Settlement.ChannelID != "" {
				mu.Lock()
				results[i].ChannelID = info.Settlement.ChannelID
				results[i].Chain = info.Settlement.NegotiatedChain
				mu.Unlock()
				metrics.ChannelsOpened.WithLabelValues(info.Settlement.NegotiatedChain).Inc()
				o.cfg.Broadcaster.Emit(lifecycle.ChannelOpened{
					PeerID:    peerID,
					ChannelID: info.Settlement.ChannelID,
					Chain:     info.Settlement.NegotiatedChain,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
}

// handshakeOutcome classifies a failed handshake's err into the
// "rejected"/"timeout"/"cancelled" labels metrics.HandshakesCompleted
// tracks. Every other failure is labelled "timeout": the
// ErrCodeSpspTimeout RequestSpspInfo reports after its single retry,
// and also its argument, decode and validation errors.
func handshakeOutcome(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	var ce *logger.CrosstownError
	if errors.As(err, &ce) && ce.Code == logger.ErrCodeSpspRejected {
		return "rejected"
	}
	return "timeout"
}

// announce runs §4.9 step 4: publish our own kind-10032 descriptor to
// each peer priced at basePricePerByte x toonByteLength.
func (o *Orchestrator) announce(ctx context.Context, results []Result) {
	ownEvent, err := event.BuildPeerInfoEvent(o.cfg.Keys, time.Now().Unix(), o.cfg.OwnDescriptor)
	if err != nil {
		o.log.Warn("failed to build own descriptor for announce", logger.Error(err))
		return
	}
	encoded, err := o.cfg.Codec.Encode(ownEvent)
	if err != nil {
		o.log.Warn("failed to toon-encode own descriptor for announce", logger.Error(err))
		return
	}
	amount := o.cfg.BasePricePerByte * int64(len(encoded))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i := range results {
		i := i
		g.Go(func() error {
			r := results[i]
			peerID := identity.Pubkey(r.Peer.Pubkey).Short()

			result, err := o.cfg.PacketSender.Send(gctx, capability.PacketSendRequest{
				Destination: r.Descriptor.IlpAddress,
				Amount:      formatAmount(amount),
				Data:        base64.StdEncoding.EncodeToString(encoded),
			})
			if err != nil || !result.Accepted {
				reason := "send failed"
				if err == nil {
					reason = result.Code + " " + result.Message
				}
				o.cfg.Broadcaster.Emit(lifecycle.AnnounceFailed{PeerID: peerID, Reason: reason})
				return nil
			}
			o.cfg.Broadcaster.Emit(lifecycle.Announced{PeerID: peerID, EventID: ownEvent.ID, Amount: formatAmount(amount)})
			return nil
		})
	}
	_ = g.Wait()
}

// mergeKnownPeers layers config-level known peers over the discovered
// set using C4's dedupe-by-pubkey, later-source-overrides-earlier
// rule, preserving first-insertion order.
func mergeKnownPeers(discovered, configured []peers.KnownPeer) []peers.KnownPeer {
	order := make([]string, 0, len(discovered)+len(configured))
	byKey := make(map[string]peers.KnownPeer, len(discovered)+len(configured))

	add := func(list []peers.KnownPeer) {
		for _, p := range list {
			if _, seen := byKey[p.Pubkey]; !seen {
				order = append(order, p.Pubkey)
			}
			byKey[p.Pubkey] = p
		}
	}
	add(discovered)
	add(configured)

	merged := make([]peers.KnownPeer, 0, len(order))
	for _, k := range order {
		merged = append(merged, byKey[k])
	}
	return merged
}

func formatAmount(n int64) string {
	return strconv.FormatInt(n, 10)
}
