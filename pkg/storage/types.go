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

package storage

import "time"

// PeerDescriptorEntry is a cached kind-10032 peer descriptor, plus the
// local bookkeeping needed to resume peering across a restart without
// re-running the full handshake for peers already registered.
type PeerDescriptorEntry struct {
	Pubkey      string `json:"pubkey"`
	RelayURL    string `json:"relay_url"`
	IlpAddress  string `json:"ilp_address"`
	BtpEndpoint string `json:"btp_endpoint"`
	AssetCode   string `json:"asset_code"`
	AssetScale  int    `json:"asset_scale"`

	// Peered reports whether this pubkey is currently registered with
	// the local connector.
	Peered bool   `json:"peered"`
	PeerID string `json:"peer_id,omitempty"`

	// CreatedAt is the descriptor event's created_at, used to reject
	// stale re-announcements the same way pkg/monitor does.
	CreatedAt int64     `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
