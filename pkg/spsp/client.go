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

// Package spsp implements the simple payment-setup protocol exchange:
// a request/response pair of encrypted control events carried inside
// ILP packets, with optional settlement negotiation folded into the
// response.
package spsp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/capability"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/toon"
)

const defaultRequestTimeout = 30 * time.Second

// SettlementResult is the negotiated settlement data attached to an
// SpspInfo when the responder was able to open a channel.
type SettlementResult struct {
	NegotiatedChain     string
	SettlementAddress   string
	TokenAddress        string
	TokenNetworkAddress string
	ChannelID           string
	SettlementTimeout   int64
}

// Info is the outcome of a successful SPSP exchange.
type Info struct {
	DestinationAccount string
	SharedSecret        string
	Settlement          *SettlementResult
}

// RequestOptions configures requestSpspInfo beyond its required
// arguments.
type RequestOptions struct {
	Amount         string        // decimal string; defaults to "0"
	Timeout        time.Duration // defaults to 30s
	SettlementInfo *event.SettlementInfo
	// Codec is the toonEncoder/toonDecoder injection point; defaults to
	// toon.DefaultCodec{}.
	Codec toon.Codec
}

// RequestSpspInfo builds and sends an encrypted kind-23194 request to
// recipientPubkey over sender, waits for its fulfillment, and decodes
// the kind-23195 response. See §4.7: an explicit protocol-level reject
// is surfaced immediately with no retry; a transport-level error on
// the first attempt is retried exactly once before surfacing
// SpspTimeout.
func RequestSpspInfo(ctx context.Context, senderKeys *identity.KeyPair, recipientPubkey identity.Pubkey, peerIlpAddress string, sender capability.PacketSender, opts RequestOptions) (Info, error) {
	if !recipientPubkey.Valid() {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeInvalidArg, fmt.Sprintf("invalid recipient pubkey: %q", string(recipientPubkey)), nil)
	}

	amount := opts.Amount
	if amount == "" {
		amount = "0"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	codec := opts.Codec
	if codec == nil {
		codec = toon.DefaultCodec{}
	}

	ev, requestID, err := event.BuildSpspRequest(senderKeys, recipientPubkey, time.Now().Unix(), opts.SettlementInfo)
	if err != nil {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeInvalidArg, "build spsp request", err)
	}
	encoded, err := codec.Encode(ev)
	if err != nil {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeInvalidArg, "encode spsp request", err)
	}
	req := capability.PacketSendRequest{
		Destination: peerIlpAddress,
		Amount:      amount,
		Data:        base64.StdEncoding.EncodeToString(encoded),
		Timeout:     int64(timeout.Seconds()),
	}

	result, err := sender.Send(ctx, req)
	if err != nil {
		// Transport-level failure on the first attempt: retry once.
		result, err = sender.Send(ctx, req)
		if err != nil {
			metrics.SpspRequests.WithLabelValues("timeout").Inc()
			return Info{}, logger.NewCrosstownError(logger.ErrCodeSpspTimeout, "no fulfillment after retry", err)
		}
	}

	if !result.Accepted {
		metrics.SpspRequests.WithLabelValues("rejected").Inc()
		return Info{}, logger.NewCrosstownError(logger.ErrCodeSpspRejected, result.Message, nil).
			WithDetails("code", result.Code)
	}

	info, err := decodeSpspResponse(result.Data, senderKeys, recipientPubkey, requestID, codec)
	if err != nil {
		metrics.SpspRequests.WithLabelValues("decode_error").Inc()
		return Info{}, err
	}
	metrics.SpspRequests.WithLabelValues("fulfilled").Inc()
	return info, nil
}

func decodeSpspResponse(dataB64 string, senderKeys *identity.KeyPair, responderPubkey identity.Pubkey, requestID string, codec toon.Codec) (Info, error) {
	raw, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeInvalidEvent, "malformed base64 spsp response", err)
	}
	ev, err := codec.Decode(raw)
	if err != nil {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeToonDecode, "decode spsp response", err)
	}
	resp, err := event.ParseSpspResponse(ev, senderKeys, responderPubkey)
	if err != nil {
		return Info{}, err
	}
	if resp.RequestID != requestID {
		return Info{}, logger.NewCrosstownError(logger.ErrCodeInvalidEvent, "spsp response requestId does not match request", nil)
	}

	info := Info{
		DestinationAccount: resp.DestinationAccount,
		SharedSecret:        resp.SharedSecret,
	}
	if resp.NegotiatedChain != "" {
		info.Settlement = &SettlementResult{
			NegotiatedChain:     resp.NegotiatedChain,
			SettlementAddress:   resp.SettlementAddress,
			TokenAddress:        resp.TokenAddress,
			TokenNetworkAddress: resp.TokenNetworkAddress,
			ChannelID:           resp.ChannelID,
			SettlementTimeout:   resp.SettlementTimeout,
		}
	}
	return info, nil
}
