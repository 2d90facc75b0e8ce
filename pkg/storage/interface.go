package storage

import "context"

// PeerDescriptorStore defines the interface for caching peer
// descriptors discovered off the relay network, so a restarted node
// does not have to wait for a fresh kind-10032 event from every known
// peer before it can resume routing.
type PeerDescriptorStore interface {
	// Upsert inserts or replaces the cached entry for entry.Pubkey.
	Upsert(ctx context.Context, entry *PeerDescriptorEntry) error

	// Get retrieves the cached entry for a pubkey.
	Get(ctx context.Context, pubkey string) (*PeerDescriptorEntry, error)

	// Delete removes a cached entry, typically on receipt of a
	// tombstone event.
	Delete(ctx context.Context, pubkey string) error

	// List returns every cached entry.
	List(ctx context.Context) ([]*PeerDescriptorEntry, error)

	// MarkPeered records whether a pubkey is currently registered with
	// the local connector.
	MarkPeered(ctx context.Context, pubkey string, peered bool, peerID string) error

	// Count returns the number of cached entries.
	Count(ctx context.Context) (int64, error)
}

// Store combines the storage interfaces a Crosstown node persists to.
type Store interface {
	PeerDescriptorStore() PeerDescriptorStore

	// Close closes the storage connection.
	Close() error

	// Ping checks the storage connection.
	Ping(ctx context.Context) error
}
