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

package peers

// genesisPeers is the built-in bootstrap set every node ships with, so
// that a freshly-started node with no registry and no caller-supplied
// peer list can still discover the network. Real deployments are
// expected to override these via the registry or additionalJSON.
var genesisPeers = []KnownPeer{
	{
		Pubkey:   "0000000000000000000000000000000000000000000000000000000000000001",
		RelayURL: "wss://relay.crosstown.network",
	},
}

// GenesisPeers returns a copy of the built-in genesis peer set.
func GenesisPeers() []KnownPeer {
	out := make([]KnownPeer, len(genesisPeers))
	copy(out, genesisPeers)
	return out
}
