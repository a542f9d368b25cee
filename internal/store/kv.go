package store

import "context"

// KV is the minimal byte-oriented key-value interface the record store
// runs on. Implementations: SQLiteKV (persistent, production) and
// MemoryKV (tests).
type KV interface {
	// Get returns the value for key, or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
