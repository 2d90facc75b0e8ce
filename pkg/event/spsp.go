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

package event

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

// SettlementInfo carries the settlement-related fields shared by an SPSP
// request (what the requester supports) and the node's own configuration
// (what it offers as a responder).
type SettlementInfo struct {
	SupportedChains     []string          `json:"supportedChains,omitempty"`
	SettlementAddresses map[string]string `json:"settlementAddresses,omitempty"`
	PreferredTokens     map[string]string `json:"preferredTokens,omitempty"`
}

// SpspRequest is the kind-23194 encrypted payload.
type SpspRequest struct {
	RequestID string `json:"requestId"`
	Timestamp int64  `json:"timestamp"`
	SettlementInfo
}

// SpspResponse is the kind-23195 encrypted payload.
type SpspResponse struct {
	RequestID           string `json:"requestId"`
	DestinationAccount  string `json:"destinationAccount"`
	SharedSecret        string `json:"sharedSecret"`
	NegotiatedChain      string `json:"negotiatedChain,omitempty"`
	SettlementAddress    string `json:"settlementAddress,omitempty"`
	TokenAddress         string `json:"tokenAddress,omitempty"`
	TokenNetworkAddress  string `json:"tokenNetworkAddress,omitempty"`
	ChannelID            string `json:"channelId,omitempty"`
	SettlementTimeout    int64  `json:"settlementTimeout,omitempty"`
}

// BuildSpspRequest composes, encrypts, and signs a kind-23194 event
// addressed to recipientPubkey. Returns the event and the generated
// requestId for correlation by the caller.
func BuildSpspRequest(senderSecret *identity.KeyPair, recipientPubkey identity.Pubkey, createdAt int64, settlementInfo *SettlementInfo) (*SignedEvent, string, error) {
	if !recipientPubkey.Valid() {
		return nil, "", fmt.Errorf("invalid recipient pubkey: %q", string(recipientPubkey))
	}
	requestID := uuid.NewString()
	req := SpspRequest{
		RequestID: requestID,
		Timestamp: createdAt,
	}
	if settlementInfo != nil {
		req.SettlementInfo = *settlementInfo
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshal spsp request: %w", err)
	}
	ciphertext, err := encryptNIP44(senderSecret, recipientPubkey, payload)
	if err != nil {
		return nil, "", fmt.Errorf("encrypt spsp request: %w", err)
	}
	tags := []Tag{{"p", string(recipientPubkey)}}
	ev, err := build(senderSecret, KindSpspRequest, createdAt, tags, ciphertext)
	if err != nil {
		return nil, "", err
	}
	return ev, requestID, nil
}

// ParseSpspRequest verifies e, checks that it is addressed to
// myReceiverSecret's pubkey, decrypts using the conversation key derived
// from (myReceiverSecret, senderPubkey), and parses the JSON payload.
func ParseSpspRequest(e *SignedEvent, myReceiverSecret *identity.KeyPair, senderPubkey identity.Pubkey) (SpspRequest, error) {
	var req SpspRequest
	if e.Kind != KindSpspRequest {
		return req, invalidEvent(fmt.Sprintf("unexpected kind %d, want %d", e.Kind, KindSpspRequest), nil)
	}
	if e.Pubkey != string(senderPubkey) {
		return req, invalidEvent("event pubkey does not match expected sender", nil)
	}
	if err := Verify(e); err != nil {
		return req, err
	}
	myPubkey := string(myReceiverSecret.Pubkey())
	if !HasPTag(e.Tags, myPubkey) {
		return req, invalidEvent("event is not addressed to this recipient", nil)
	}
	plaintext, err := decryptNIP44(myReceiverSecret, senderPubkey, e.Content)
	if err != nil {
		return req, invalidEvent("decryption failed", err)
	}
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return req, invalidEvent("malformed spsp request JSON", err)
	}
	return req, nil
}

// BuildSpspResponse composes, encrypts, and signs a kind-23195 event
// addressed to requesterPubkey.
func BuildSpspResponse(responderSecret *identity.KeyPair, requesterPubkey identity.Pubkey, createdAt int64, response SpspResponse) (*SignedEvent, error) {
	if !requesterPubkey.Valid() {
		return nil, fmt.Errorf("invalid requester pubkey: %q", string(requesterPubkey))
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("marshal spsp response: %w", err)
	}
	ciphertext, err := encryptNIP44(responderSecret, requesterPubkey, payload)
	if err != nil {
		return nil, fmt.Errorf("encrypt spsp response: %w", err)
	}
	tags := []Tag{{"p", string(requesterPubkey)}}
	return build(responderSecret, KindSpspResponse, createdAt, tags, ciphertext)
}

// ParseSpspResponse verifies e, decrypts using the conversation key derived
// from (mySenderSecret, responderPubkey), and parses the JSON payload. The
// optional settlement fields may be absent.
func ParseSpspResponse(e *SignedEvent, mySenderSecret *identity.KeyPair, responderPubkey identity.Pubkey) (SpspResponse, error) {
	var resp SpspResponse
	if e.Kind != KindSpspResponse {
		return resp, invalidEvent(fmt.Sprintf("unexpected kind %d, want %d", e.Kind, KindSpspResponse), nil)
	}
	if e.Pubkey != string(responderPubkey) {
		return resp, invalidEvent("event pubkey does not match expected responder", nil)
	}
	if err := Verify(e); err != nil {
		return resp, err
	}
	myPubkey := string(mySenderSecret.Pubkey())
	if !HasPTag(e.Tags, myPubkey) {
		return resp, invalidEvent("response is not addressed to this requester", nil)
	}
	plaintext, err := decryptNIP44(mySenderSecret, responderPubkey, e.Content)
	if err != nil {
		return resp, invalidEvent("decryption failed", err)
	}
	if err := json.Unmarshal(plaintext, &resp); err != nil {
		return resp, invalidEvent("malformed spsp response JSON", err)
	}
	return resp, nil
}
