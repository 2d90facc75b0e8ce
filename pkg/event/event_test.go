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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
)

func mustKeyPair(t *testing.T) *identity.KeyPair {
	t.Helper()
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestBuildPeerInfoEventVerifies(t *testing.T) {
	kp := mustKeyPair(t)
	descriptor := PeerDescriptor{
		IlpAddress:  "g.test.peer",
		BtpEndpoint: "ws://peer",
		AssetCode:   "USD",
		AssetScale:  2,
	}
	ev, err := BuildPeerInfoEvent(kp, 1000, descriptor)
	require.NoError(t, err)
	assert.Equal(t, KindPeerDescriptor, ev.Kind)
	assert.NoError(t, Verify(ev))

	parsed, err := ParsePeerInfo(ev)
	require.NoError(t, err)
	assert.Equal(t, descriptor, parsed)
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	kp := mustKeyPair(t)
	ev, err := BuildPeerInfoEvent(kp, 1000, PeerDescriptor{IlpAddress: "g.a", BtpEndpoint: "ws://a"})
	require.NoError(t, err)

	ev.Content = `{"ilpAddress":"g.evil","btpEndpoint":"ws://evil","assetCode":"","assetScale":0}`
	assert.Error(t, Verify(ev))
}

func TestTombstoneEvent(t *testing.T) {
	kp := mustKeyPair(t)
	ev, err := BuildTombstoneEvent(kp, 2000)
	require.NoError(t, err)
	assert.True(t, IsTombstone(ev))
	assert.NoError(t, Verify(ev))

	_, err = ParsePeerInfo(ev)
	assert.Error(t, err)
}

func TestNewerDescriptor(t *testing.T) {
	a := &SignedEvent{CreatedAt: 100, ID: "aaaa"}
	b := &SignedEvent{CreatedAt: 200, ID: "aaaa"}
	assert.True(t, NewerDescriptor(a, b))
	assert.False(t, NewerDescriptor(b, a))

	c := &SignedEvent{CreatedAt: 100, ID: "bbbb"}
	assert.True(t, NewerDescriptor(a, c))
}

func TestSpspRequestRoundTrip(t *testing.T) {
	sender := mustKeyPair(t)
	receiver := mustKeyPair(t)

	settlement := &SettlementInfo{
		SupportedChains:     []string{"evm:base:8453"},
		SettlementAddresses: map[string]string{"evm:base:8453": "0xabc"},
	}
	ev, requestID, err := BuildSpspRequest(sender, receiver.Pubkey(), 5000, settlement)
	require.NoError(t, err)
	assert.Equal(t, KindSpspRequest, ev.Kind)
	assert.True(t, HasPTag(ev.Tags, string(receiver.Pubkey())))

	parsed, err := ParseSpspRequest(ev, receiver, sender.Pubkey())
	require.NoError(t, err)
	assert.Equal(t, requestID, parsed.RequestID)
	assert.Equal(t, settlement.SupportedChains, parsed.SupportedChains)
	assert.Equal(t, settlement.SettlementAddresses, parsed.SettlementAddresses)
}

func TestParseSpspRequestRejectsWrongRecipient(t *testing.T) {
	sender := mustKeyPair(t)
	receiver := mustKeyPair(t)
	interloper := mustKeyPair(t)

	ev, _, err := BuildSpspRequest(sender, receiver.Pubkey(), 1, nil)
	require.NoError(t, err)

	_, err = ParseSpspRequest(ev, interloper, sender.Pubkey())
	assert.Error(t, err)
}

func TestSpspResponseRoundTrip(t *testing.T) {
	requester := mustKeyPair(t)
	responder := mustKeyPair(t)

	resp := SpspResponse{
		RequestID:          "req-1",
		DestinationAccount: "g.responder.abc",
		SharedSecret:       "c2VjcmV0",
		NegotiatedChain:    "evm:base:8453",
		SettlementAddress:  "0xdef",
		ChannelID:          "0xCH",
	}
	ev, err := BuildSpspResponse(responder, requester.Pubkey(), 6000, resp)
	require.NoError(t, err)
	assert.Equal(t, KindSpspResponse, ev.Kind)

	parsed, err := ParseSpspResponse(ev, requester, responder.Pubkey())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestSpspResponseRoundTripWithoutSettlement(t *testing.T) {
	requester := mustKeyPair(t)
	responder := mustKeyPair(t)

	resp := SpspResponse{
		RequestID:          "req-2",
		DestinationAccount: "g.responder.abc",
		SharedSecret:       "c2VjcmV0",
	}
	ev, err := BuildSpspResponse(responder, requester.Pubkey(), 6000, resp)
	require.NoError(t, err)

	parsed, err := ParseSpspResponse(ev, requester, responder.Pubkey())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
	assert.Empty(t, parsed.NegotiatedChain)
	assert.Empty(t, parsed.ChannelID)
}

func TestConversationKeyIsSymmetric(t *testing.T) {
	a := mustKeyPair(t)
	b := mustKeyPair(t)

	keyAB, err := conversationKey(a, b.Pubkey())
	require.NoError(t, err)
	keyBA, err := conversationKey(b, a.Pubkey())
	require.NoError(t, err)
	assert.Equal(t, keyAB, keyBA)
}

func TestDecryptNIP44RejectsWrongKey(t *testing.T) {
	a := mustKeyPair(t)
	b := mustKeyPair(t)
	c := mustKeyPair(t)

	ciphertext, err := encryptNIP44(a, b.Pubkey(), []byte("hello"))
	require.NoError(t, err)

	_, err = decryptNIP44(c, a.Pubkey(), ciphertext)
	assert.Error(t, err)
}
