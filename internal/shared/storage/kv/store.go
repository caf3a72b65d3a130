package kv

import "context"

// Store is the key-value record store boundary. Values are opaque strings;
// callers own serialization (records are stored as JSON text).
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value, replacing any existing one.
	Set(ctx context.Context, key, value string) error
}
