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

package settlement

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// chain identifier prefixes, e.g. "evm:base:8453", "solana:mainnet",
// "xrp:mainnet".
const (
	familyEVM    = "evm"
	familySolana = "solana"
	familyXRP    = "xrp"
)

// ValidateSettlementAddress checks that address is well-formed for the
// chain family encoded in chain's identifier prefix. Unknown families
// are accepted as opaque strings (the negotiator does not need to
// understand every chain a peer might advertise).
func ValidateSettlementAddress(chainID, address string) error {
	family := chainFamily(chainID)
	switch family {
	case familyEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid EVM settlement address for chain %q: %q", chainID, address)
		}
		return nil
	case familySolana:
		pub, err := solana.PublicKeyFromBase58(address)
		if err != nil || pub.IsZero() {
			return fmt.Errorf("invalid Solana settlement address for chain %q: %q", chainID, address)
		}
		return nil
	case familyXRP:
		decoded, err := base58.Decode(address)
		if err != nil || len(decoded) < 5 {
			return fmt.Errorf("invalid XRP settlement address for chain %q: %q", chainID, address)
		}
		return nil
	default:
		return nil
	}
}

func chainFamily(chainID string) string {
	if idx := strings.IndexByte(chainID, ':'); idx >= 0 {
		return chainID[:idx]
	}
	return chainID
}
