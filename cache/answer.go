package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/schema"
)

const answerKeyPrefix = "ans:"

// Fingerprint builds the answer cache key. It hashes every input that
// affects a cached result's validity: the normalized query text, the active
// retrieval mode, and the embedding model version tag. Including the mode
// guarantees a context fused while the graph store was down is never served
// as a hybrid answer, and vice versa.
func Fingerprint(normalizedText string, mode schema.RetrievalMode, modelVersion string) string {
	return HashKey(answerKeyPrefix, fmt.Sprintf("%s|%s|%s", normalizedText, mode, modelVersion))
}

// AnswerCache stores fused context sets keyed by retrieval fingerprint.
type AnswerCache struct {
	store Store
	ttl   time.Duration
}

// NewAnswerCache wraps store with the configured answer TTL.
func NewAnswerCache(store Store, ttl time.Duration) *AnswerCache {
	return &AnswerCache{store: store, ttl: ttl}
}

// Lookup returns the cached fused context for fingerprint, or ok=false.
// Expired entries and cache store failures are both misses, never errors.
func (c *AnswerCache) Lookup(ctx context.Context, fingerprint string) (*schema.FusedContext, bool) {
	data, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		if err != ErrMiss {
			logger.Warnf("answer cache: read failed, treating as miss: %v", err)
		}
		return nil, false
	}
	var fused schema.FusedContext
	if err := json.Unmarshal(data, &fused); err != nil {
		logger.Warnf("answer cache: corrupt entry %s: %v", fingerprint, err)
		return nil, false
	}
	return &fused, true
}

// Store writes the fused context under fingerprint, best effort.
func (c *AnswerCache) Store(ctx context.Context, fingerprint string, fused *schema.FusedContext) {
	data, err := json.Marshal(fused)
	if err != nil {
		logger.Warnf("answer cache: marshal failed: %v", err)
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := c.store.SetNX(wctx, fingerprint, data, c.ttl); err != nil {
		logger.Warnf("answer cache: write failed: %v", err)
	}
}
