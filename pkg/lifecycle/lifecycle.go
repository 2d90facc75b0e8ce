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

// Package lifecycle defines the tagged-union events emitted by the
// bootstrap orchestrator (C9) and relay monitor (C10), and a small
// broadcaster that fans them out to listeners without letting a
// misbehaving listener affect orchestrator state.
package lifecycle

// Phase is a bootstrap orchestrator state.
type Phase int

const (
	Discovering Phase = iota + 1
	Registering
	Handshaking
	Announcing
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Discovering:
		return "discovering"
	case Registering:
		return "registering"
	case Handshaking:
		return "handshaking"
	case Announcing:
		return "announcing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is the tagged union emitted by the orchestrator and monitor.
// Test and listener code discriminates on the concrete type via a type
// switch, never on field presence.
type Event interface {
	isLifecycleEvent()
}

// PhaseChanged marks a bootstrap orchestrator phase transition.
type PhaseChanged struct {
	From Phase
	To   Phase
}

// PeerDiscovered is emitted by the monitor when a new or updated peer
// descriptor is observed. Peering is never automatic.
type PeerDiscovered struct {
	Pubkey     string
	IlpAddress string
}

// PeerRegistered is emitted once a peer has been added to the local
// connector's peer table.
type PeerRegistered struct {
	PeerID     string
	Pubkey     string
	IlpAddress string
}

// HandshakeFailed is emitted when an SPSP handshake with a peer fails;
// this is always non-fatal to the caller.
type HandshakeFailed struct {
	PeerID string
	Reason string
}

// ChannelOpened is emitted once settlement negotiation has produced an
// open on-chain payment channel for a peer.
type ChannelOpened struct {
	PeerID    string
	ChannelID string
	Chain     string
}

// Announced is emitted when this node's own peer descriptor has been
// published/sent to a peer.
type Announced struct {
	PeerID  string
	EventID string
	Amount  string
}

// AnnounceFailed is emitted when announcing to a peer fails.
type AnnounceFailed struct {
	PeerID string
	Reason string
}

// PeerDeregistered is emitted when a peer is removed from the local
// connector's peer table, e.g. on a tombstone event.
type PeerDeregistered struct {
	PeerID string
	Pubkey string
	Reason string
}

// Ready is emitted once bootstrap reaches its terminal ready phase.
type Ready struct {
	PeerCount    int
	ChannelCount int
}

func (PhaseChanged) isLifecycleEvent()     {}
func (PeerDiscovered) isLifecycleEvent()   {}
func (PeerRegistered) isLifecycleEvent()   {}
func (HandshakeFailed) isLifecycleEvent()  {}
func (ChannelOpened) isLifecycleEvent()    {}
func (Announced) isLifecycleEvent()        {}
func (AnnounceFailed) isLifecycleEvent()   {}
func (PeerDeregistered) isLifecycleEvent() {}
func (Ready) isLifecycleEvent()            {}
