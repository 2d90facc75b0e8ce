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

package capability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
)

func TestMockPacketSenderDefaultBehavior(t *testing.T) {
	mock := &capability.MockPacketSender{}

	result, err := mock.Send(context.Background(), capability.PacketSendRequest{
		Destination: "g.peer",
		Amount:      "0",
		Data:        "base64data",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	last := mock.LastSent()
	require.NotNil(t, last)
	assert.Equal(t, "g.peer", last.Destination)
}

func TestMockPacketSenderCustomFunction(t *testing.T) {
	mock := &capability.MockPacketSender{
		SendFunc: func(ctx context.Context, req capability.PacketSendRequest) (capability.PacketSendResult, error) {
			return capability.PacketSendResult{Accepted: false, Code: "F06", Message: "insufficient amount"}, nil
		},
	}

	result, err := mock.Send(context.Background(), capability.PacketSendRequest{Destination: "g.peer"})
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "F06", result.Code)
}

func TestMockAdminClientAddPeerIsIdempotentByID(t *testing.T) {
	mock := &capability.MockAdminClient{}

	err := mock.AddPeer(context.Background(), capability.AddPeerRequest{ID: "nostr-abc", URL: "ws://one"})
	require.NoError(t, err)
	err = mock.AddPeer(context.Background(), capability.AddPeerRequest{ID: "nostr-abc", URL: "ws://two"})
	require.NoError(t, err)

	assert.True(t, mock.HasPeer("nostr-abc"))
	assert.Equal(t, "ws://two", mock.Peers["nostr-abc"].URL)
}

func TestMockAdminClientRemovePeer(t *testing.T) {
	mock := &capability.MockAdminClient{}
	require.NoError(t, mock.AddPeer(context.Background(), capability.AddPeerRequest{ID: "nostr-abc"}))

	require.NoError(t, mock.RemovePeer(context.Background(), "nostr-abc"))
	assert.False(t, mock.HasPeer("nostr-abc"))
}

func TestMockChannelClientOpenThenPoll(t *testing.T) {
	mock := &capability.MockChannelClient{}

	result, err := mock.OpenChannel(context.Background(), capability.OpenChannelRequest{Chain: "evm:base:8453"})
	require.NoError(t, err)
	require.NotEmpty(t, result.ChannelID)

	state, err := mock.GetChannelState(context.Background(), result.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, capability.ChannelOpen, state.Status)
}
