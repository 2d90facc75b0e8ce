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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/storage"
)

// PeerDescriptorStore implements storage.PeerDescriptorStore for PostgreSQL.
type PeerDescriptorStore struct {
	db *pgxpool.Pool
}

// Upsert inserts or replaces the cached entry for entry.Pubkey.
func (p *PeerDescriptorStore) Upsert(ctx context.Context, entry *storage.PeerDescriptorEntry) error {
	query := `
		INSERT INTO peer_descriptors
			(pubkey, relay_url, ilp_address, btp_endpoint, asset_code, asset_scale, peered, peer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (pubkey) DO UPDATE SET
			relay_url = EXCLUDED.relay_url,
			ilp_address = EXCLUDED.ilp_address,
			btp_endpoint = EXCLUDED.btp_endpoint,
			asset_code = EXCLUDED.asset_code,
			asset_scale = EXCLUDED.asset_scale,
			peered = EXCLUDED.peered,
			peer_id = EXCLUDED.peer_id,
			created_at = EXCLUDED.created_at,
			updated_at = now()
	`

	_, err := p.db.Exec(ctx, query,
		entry.Pubkey,
		entry.RelayURL,
		entry.IlpAddress,
		entry.BtpEndpoint,
		entry.AssetCode,
		entry.AssetScale,
		entry.Peered,
		entry.PeerID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert peer descriptor: %w", err)
	}
	return nil
}

// Get retrieves the cached entry for a pubkey.
func (p *PeerDescriptorStore) Get(ctx context.Context, pubkey string) (*storage.PeerDescriptorEntry, error) {
	query := `
		SELECT pubkey, relay_url, ilp_address, btp_endpoint, asset_code, asset_scale, peered, peer_id, created_at, updated_at
		FROM peer_descriptors
		WHERE pubkey = $1
	`

	var result storage.PeerDescriptorEntry
	err := p.db.QueryRow(ctx, query, pubkey).Scan(
		&result.Pubkey,
		&result.RelayURL,
		&result.IlpAddress,
		&result.BtpEndpoint,
		&result.AssetCode,
		&result.AssetScale,
		&result.Peered,
		&result.PeerID,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get peer descriptor: %w", err)
	}

	return &result, nil
}

// Delete removes a cached entry.
func (p *PeerDescriptorStore) Delete(ctx context.Context, pubkey string) error {
	query := `DELETE FROM peer_descriptors WHERE pubkey = $1`

	result, err := p.db.Exec(ctx, query, pubkey)
	if err != nil {
		return fmt.Errorf("failed to delete peer descriptor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	return nil
}

// List returns every cached entry.
func (p *PeerDescriptorStore) List(ctx context.Context) ([]*storage.PeerDescriptorEntry, error) {
	query := `
		SELECT pubkey, relay_url, ilp_address, btp_endpoint, asset_code, asset_scale, peered, peer_id, created_at, updated_at
		FROM peer_descriptors
		ORDER BY updated_at DESC
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list peer descriptors: %w", err)
	}
	defer rows.Close()

	var entries []*storage.PeerDescriptorEntry
	for rows.Next() {
		var entry storage.PeerDescriptorEntry
		if err := rows.Scan(
			&entry.Pubkey,
			&entry.RelayURL,
			&entry.IlpAddress,
			&entry.BtpEndpoint,
			&entry.AssetCode,
			&entry.AssetScale,
			&entry.Peered,
			&entry.PeerID,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan peer descriptor: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating peer descriptors: %w", err)
	}

	return entries, nil
}

// MarkPeered records whether a pubkey is currently registered.
func (p *PeerDescriptorStore) MarkPeered(ctx context.Context, pubkey string, peered bool, peerID string) error {
	query := `UPDATE peer_descriptors SET peered = $1, peer_id = $2, updated_at = now() WHERE pubkey = $3`

	result, err := p.db.Exec(ctx, query, peered, peerID, pubkey)
	if err != nil {
		return fmt.Errorf("failed to mark peer descriptor peered: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("peer descriptor not found: %s", pubkey)
	}
	return nil
}

// Count returns the number of cached entries.
func (p *PeerDescriptorStore) Count(ctx context.Context) (int64, error) {
	query := `SELECT count(*) FROM peer_descriptors`

	var count int64
	if err := p.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count peer descriptors: %w", err)
	}
	return count, nil
}
