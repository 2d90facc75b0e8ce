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
	"time"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/settlement"
)

const (
	defaultInitialDeposit    = "0"
	defaultSettlementTimeout = int64(86400)
	defaultChannelOpenTimeout = 30 * time.Second
	defaultPollInterval      = time.Second
)

// SettlementNegotiationConfig is a responder's own settlement posture:
// the chains, addresses, and tokens it is willing to offer, plus the
// channel-opening parameters. Shared by the SPSP server (C8), the
// bootstrap orchestrator (C9), and the relay monitor (C10).
type SettlementNegotiationConfig struct {
	OwnSupportedChains     []string
	OwnSettlementAddresses map[string]string
	OwnPreferredTokens     map[string]string
	OwnTokenNetworks       map[string]string

	InitialDeposit    string
	SettlementTimeout int64
	ChannelOpenTimeout time.Duration
	PollInterval       time.Duration
}

// NegotiateSettlement runs the settlement negotiation sub-protocol
// (§4.8) against an already-parsed SpspRequest. It returns (nil, nil)
// when no settlement should be attached to the response (no chain
// intersection, or the requester offered no address on the negotiated
// chain) — that is not an error, just "stay with the basic response".
// An error is returned only once channelClient.OpenChannel has been
// invoked: those failures propagate to the caller, which is expected
// to degrade gracefully rather than fail the whole exchange.
func NegotiateSettlement(ctx context.Context, channelClient capability.ChannelClient, req event.SpspRequest, cfg SettlementNegotiationConfig, senderPubkey identity.Pubkey) (*SettlementResult, error) {
	if len(req.SupportedChains) == 0 || channelClient == nil {
		return nil, nil
	}

	negotiatedChain, ok := settlement.NegotiateChain(req.SupportedChains, cfg.OwnSupportedChains, req.PreferredTokens, cfg.OwnPreferredTokens)
	if !ok {
		return nil, nil
	}

	peerAddress, ok := req.SettlementAddresses[negotiatedChain]
	if !ok {
		return nil, nil
	}

	token, _ := settlement.ResolveToken(negotiatedChain, req.PreferredTokens, cfg.OwnPreferredTokens)

	deposit := cfg.InitialDeposit
	if deposit == "" {
		deposit = defaultInitialDeposit
	}
	settlementTimeout := cfg.SettlementTimeout
	if settlementTimeout == 0 {
		settlementTimeout = defaultSettlementTimeout
	}

	openResult, err := channelClient.OpenChannel(ctx, capability.OpenChannelRequest{
		PeerID:            senderPubkey.Short(),
		Chain:             negotiatedChain,
		Token:             token,
		TokenNetwork:      cfg.OwnTokenNetworks[negotiatedChain],
		PeerAddress:       peerAddress,
		InitialDeposit:    deposit,
		SettlementTimeout: settlementTimeout,
	})
	if err != nil {
		return nil, logger.NewCrosstownError(logger.ErrCodeChannelFailed, "open channel", err)
	}

	if err := pollChannelOpen(ctx, channelClient, openResult.ChannelID, cfg); err != nil {
		return nil, err
	}

	return &SettlementResult{
		NegotiatedChain:     negotiatedChain,
		SettlementAddress:   cfg.OwnSettlementAddresses[negotiatedChain],
		TokenAddress:        token,
		TokenNetworkAddress: cfg.OwnTokenNetworks[negotiatedChain],
		ChannelID:           openResult.ChannelID,
		SettlementTimeout:   settlementTimeout,
	}, nil
}

// pollChannelOpen polls GetChannelState at cfg.PollInterval until the
// channel reaches ChannelOpen or cfg.ChannelOpenTimeout elapses.
func pollChannelOpen(ctx context.Context, channelClient capability.ChannelClient, channelID string, cfg SettlementNegotiationConfig) error {
	timeout := cfg.ChannelOpenTimeout
	if timeout <= 0 {
		timeout = defaultChannelOpenTimeout
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		state, err := channelClient.GetChannelState(ctx, channelID)
		if err != nil {
			return logger.NewCrosstownError(logger.ErrCodeChannelFailed, "poll channel state", err)
		}
		if state.Status == capability.ChannelOpen {
			return nil
		}
		if time.Now().After(deadline) {
			return logger.NewCrosstownError(logger.ErrCodeChannelTimeout, "channel did not open before deadline", nil).
				WithDetails("channelId", channelID)
		}

		select {
		case <-ctx.Done():
			return logger.NewCrosstownError(logger.ErrCodeChannelTimeout, "cancelled while polling channel state", ctx.Err())
		case <-time.After(interval):
		}
	}
}
