package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the key-value interface shared by the embedding and answer
// caches. Writes are atomic: SetNX either installs the full entry or leaves
// an existing one untouched, so concurrent identical misses race safely
// (compute, then attempt write, accept either write or discarded duplicate).
type Store interface {
	// Get returns the value for key, or ErrMiss. Transport failures return
	// a different error and are treated by callers as best-effort misses.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetNX stores value under key with ttl if the key is absent. Returns
	// true when this call installed the entry.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// HashKey builds a content-addressed cache key: prefix plus the sha256 hex
// digest of the semantic key.
func HashKey(prefix, semanticKey string) string {
	sum := sha256.Sum256([]byte(semanticKey))
	return prefix + hex.EncodeToString(sum[:])
}
