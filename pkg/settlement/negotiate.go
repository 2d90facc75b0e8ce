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

// Package settlement implements the pure chain/token negotiation used
// by the SPSP server and the bootstrap/monitor handshake flows, plus
// per-chain-family settlement-address validation.
package settlement

// NegotiateChain picks the settlement chain both sides can use.
//
//  1. Intersect requesterChains and responderChains, preserving the
//     requester's order.
//  2. If empty, no chain can be negotiated.
//  3. Prefer the first intersection member with a requester preference.
//  4. Else prefer the first with a responder preference.
//  5. Else return the first intersection member.
func NegotiateChain(requesterChains, responderChains []string, reqPref, respPref map[string]string) (string, bool) {
	responderSet := make(map[string]struct{}, len(responderChains))
	for _, c := range responderChains {
		responderSet[c] = struct{}{}
	}

	var intersection []string
	for _, c := range requesterChains {
		if _, ok := responderSet[c]; ok {
			intersection = append(intersection, c)
		}
	}
	if len(intersection) == 0 {
		return "", false
	}

	for _, c := range intersection {
		if _, ok := reqPref[c]; ok {
			return c, true
		}
	}
	for _, c := range intersection {
		if _, ok := respPref[c]; ok {
			return c, true
		}
	}
	return intersection[0], true
}

// ResolveToken picks the token address for a negotiated chain:
// requester preference wins, then responder preference, else none.
func ResolveToken(chain string, reqPref, respPref map[string]string) (string, bool) {
	if token, ok := reqPref[chain]; ok {
		return token, true
	}
	if token, ok := respPref[chain]; ok {
		return token, true
	}
	return "", false
}
