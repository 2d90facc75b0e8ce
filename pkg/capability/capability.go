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

// Package capability declares the external collaborator interfaces the
// core depends on but does not implement: the ILP connector's
// PacketSender and AdminClient surfaces, and the on-chain
// ChannelClient. Production nodes bind concrete adapters to these
// interfaces; tests bind fakes.
package capability

import "context"

// PacketSendResult is the outcome of sending an ILP packet.
type PacketSendResult struct {
	Accepted    bool
	Fulfillment string // base64, present when Accepted
	Data        string // base64 response payload, present when Accepted
	Code        string // ILP error code, present when !Accepted (e.g. "F00", "F06", "T00")
	Message     string // human-readable, present when !Accepted
}

// PacketSendRequest is the input to PacketSender.Send.
type PacketSendRequest struct {
	Destination string // ILP address
	Amount      string // decimal string
	Data        string // base64
	Timeout     int64  // seconds; 0 means the sender's default
}

// PacketSender sends an ILP packet and waits for its fulfillment or
// rejection. Bound by an external ILP connector.
type PacketSender interface {
	Send(ctx context.Context, req PacketSendRequest) (PacketSendResult, error)
}

// Route is a single routing-table entry announced to the connector.
type Route struct {
	Prefix   string
	Priority int
}

// SettlementConfig is attached to AddPeerRequest once settlement
// negotiation has produced a channel.
type SettlementConfig struct {
	Chain               string
	SettlementAddress   string
	TokenAddress        string
	TokenNetworkAddress string
	ChannelID           string
	SettlementTimeout   int64
}

// AddPeerRequest registers or updates a peer with the local connector.
type AddPeerRequest struct {
	ID         string
	URL        string
	AuthToken  string
	Routes     []Route
	Settlement *SettlementConfig
}

// AdminClient manages the connector's peer table. AddPeer is idempotent
// by ID: repeated calls overwrite the existing registration.
type AdminClient interface {
	AddPeer(ctx context.Context, req AddPeerRequest) error
	RemovePeer(ctx context.Context, id string) error
}

// OpenChannelRequest requests a new on-chain payment channel.
type OpenChannelRequest struct {
	PeerID            string
	Chain             string
	Token             string
	TokenNetwork      string
	PeerAddress       string
	InitialDeposit    string
	SettlementTimeout int64
}

// OpenChannelResult is returned immediately by OpenChannel; the channel
// typically still needs to be polled via GetChannelState until open.
type OpenChannelResult struct {
	ChannelID string
	Status    ChannelStatus
}

// ChannelStatus is the lifecycle state of an on-chain payment channel.
type ChannelStatus string

const (
	ChannelOpening ChannelStatus = "opening"
	ChannelOpen    ChannelStatus = "open"
	ChannelClosed  ChannelStatus = "closed"
	ChannelSettled ChannelStatus = "settled"
)

// ChannelState is the polled state of an open or opening channel.
type ChannelState struct {
	ChannelID string
	Status    ChannelStatus
	Chain     string
}

// ChannelClient is the on-chain payment-channel capability. The core
// depends on this interface but never implements it: channel SDKs,
// contracts, and BTP transport live in the external ILP connector.
type ChannelClient interface {
	OpenChannel(ctx context.Context, req OpenChannelRequest) (OpenChannelResult, error)
	GetChannelState(ctx context.Context, channelID string) (ChannelState, error)
}
