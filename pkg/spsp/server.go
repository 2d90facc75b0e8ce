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
	"strconv"
	"time"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/relay"
)

// Generator produces a fresh SpspInfo for an incoming request. It may
// inspect the requester's pubkey and the parsed request (for example
// to vary the shared secret or destination account per peer).
type Generator func(senderPubkey identity.Pubkey, req event.SpspRequest) (Info, error)

// ServerConfig configures serveSpspRequests (C8).
type ServerConfig struct {
	Relay         *relay.Client   // subscribed for incoming requests
	PublishRelays []*relay.Client // responses are published here; defaults to []{Relay}
	Keys          *identity.KeyPair
	Generator     Generator

	// Settlement and ChannelClient are both required for settlement
	// negotiation to be attempted; either left nil degrades every
	// response to its basic fields.
	Settlement    *SettlementNegotiationConfig
	ChannelClient capability.ChannelClient

	Logger logger.Logger
}

// ServeSpspRequests subscribes to kind-23194 requests addressed to the
// configured key pair and answers each with a kind-23195 response,
// attempting settlement negotiation when configured. Per §4.8, every
// failure short of a successful OpenChannel call is swallowed: malformed
// or undecryptable requests are dropped, generator errors are dropped,
// and a failed negotiation degrades the response to its basic fields
// rather than aborting the exchange.
func ServeSpspRequests(cfg ServerConfig) (*relay.Subscription, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	publishTo := cfg.PublishRelays
	if len(publishTo) == 0 {
		publishTo = []*relay.Client{cfg.Relay}
	}

	myPubkey := string(cfg.Keys.Pubkey())
	filter := relay.Filter{
		Kinds: []int{event.KindSpspRequest},
		PTags: []string{myPubkey},
	}

	onEvent := func(e *event.SignedEvent) {
		handleSpspRequestEvent(context.Background(), e, cfg, publishTo, log)
	}

	return cfg.Relay.Subscribe(filter, onEvent, nil)
}

func handleSpspRequestEvent(ctx context.Context, e *event.SignedEvent, cfg ServerConfig, publishTo []*relay.Client, log logger.Logger) {
	senderPubkey := identity.Pubkey(e.Pubkey)
	req, err := event.ParseSpspRequest(e, cfg.Keys, senderPubkey)
	if err != nil {
		log.Debug("dropping malformed spsp request", logger.Error(err))
		return
	}

	info, err := cfg.Generator(senderPubkey, req)
	if err != nil {
		log.Debug("spsp generator failed, dropping request", logger.String("requestId", req.RequestID), logger.Error(err))
		return
	}

	resp := event.SpspResponse{
		RequestID:          req.RequestID,
		DestinationAccount: info.DestinationAccount,
		SharedSecret:       info.SharedSecret,
	}

	if cfg.Settlement != nil && cfg.ChannelClient != nil && len(req.SupportedChains) > 0 {
		negCtx, cancel := context.WithTimeout(ctx, settlementCtxBudget(*cfg.Settlement))
		result, err := NegotiateSettlement(negCtx, cfg.ChannelClient, req, *cfg.Settlement, senderPubkey)
		cancel()
		if err != nil {
			log.Warn("settlement negotiation failed, degrading to basic response", logger.String("requestId", req.RequestID), logger.Error(err))
		} else if result != nil {
			resp.NegotiatedChain = result.NegotiatedChain
			resp.SettlementAddress = result.SettlementAddress
			resp.TokenAddress = result.TokenAddress
			resp.TokenNetworkAddress = result.TokenNetworkAddress
			resp.ChannelID = result.ChannelID
			resp.SettlementTimeout = result.SettlementTimeout
		}
	}

	responseEvent, err := event.BuildSpspResponse(cfg.Keys, senderPubkey, time.Now().Unix(), resp)
	if err != nil {
		log.Warn("failed to build spsp response", logger.String("requestId", req.RequestID), logger.Error(err))
		return
	}

	metrics.SpspServerRequests.WithLabelValues(strconv.FormatBool(resp.ChannelID != "")).Inc()

	for _, r := range publishTo {
		if r == nil {
			continue
		}
		if err := r.Publish(ctx, responseEvent); err != nil {
			log.Warn("failed to publish spsp response", logger.String("requestId", req.RequestID), logger.Error(err))
		}
	}
}

// settlementCtxBudget bounds the negotiation context at the configured
// channel-open timeout plus a small margin, so a hung ChannelClient
// cannot block the subscription's event loop indefinitely.
func settlementCtxBudget(cfg SettlementNegotiationConfig) time.Duration {
	timeout := cfg.ChannelOpenTimeout
	if timeout <= 0 {
		timeout = defaultChannelOpenTimeout
	}
	return timeout + 5*time.Second
}
