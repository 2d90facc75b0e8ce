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

// Package registryclient fetches the peer set from a remote HTTP peer
// registry, authenticating with a signed JWT bearer assertion.
package registryclient

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/peers"
)

// Config configures a registry Client.
type Config struct {
	// URL is the registry's peer-list endpoint.
	URL string
	// Issuer identifies this node as the JWT "iss"/"sub" claim.
	Issuer string
	// Signer signs the bearer assertion. RS256 is used, matching the
	// registry's expected verification key type.
	Signer crypto.Signer
	// KeyID is placed in the JWT header "kid".
	KeyID       string
	HTTPTimeout time.Duration
}

// Client fetches peers from a remote registry over HTTP, authenticating
// with a short-lived signed JWT bearer token per request.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a registry Client.
func New(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// FetchPeers requests the registry's current peer list. Results are
// returned in whatever order the registry sends them; pkg/peers is
// responsible for merge/dedup semantics.
func (c *Client) FetchPeers(ctx context.Context) ([]peers.KnownPeer, error) {
	token, err := c.bearerAssertion()
	if err != nil {
		return nil, fmt.Errorf("sign registry bearer assertion: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new registry request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch registry peers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var body struct {
		Peers []peers.KnownPeer `json:"peers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	logger.Info("fetched peers from remote registry", logger.Int("count", len(body.Peers)))
	return body.Peers, nil
}

func (c *Client) bearerAssertion() (string, error) {
	if c.cfg.Signer == nil {
		return "", fmt.Errorf("registry client has no signer configured")
	}
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss": c.cfg.Issuer,
		"sub": c.cfg.Issuer,
		"iat": now,
		"exp": now + 60,
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.cfg.KeyID
	return token.SignedString(c.cfg.Signer)
}
