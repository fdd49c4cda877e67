package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/schema"
)

const embeddingKeyPrefix = "emb:"

// EmbedFunc computes an embedding for normalized query text. It is the
// retry-wrapped provider call injected by the orchestrator.
type EmbedFunc func(ctx context.Context, normalizedText string) (schema.Embedding, error)

// EmbeddingCache is a content-addressed store of query embeddings keyed by
// a hash of the normalized text. A hit returns the stored vector with no
// provider call; a miss computes once and attempts a write.
type EmbeddingCache struct {
	store Store
	embed EmbedFunc
	ttl   time.Duration
}

// NewEmbeddingCache wraps store and the embedding provider call.
func NewEmbeddingCache(store Store, embed EmbedFunc, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{store: store, embed: embed, ttl: ttl}
}

// GetOrCompute returns the cached embedding for normalizedText or computes
// it via the provider. Cache store failures degrade to a miss; a provider
// failure is returned unwrapped and nothing is cached, so no partial or
// empty vector can ever be served.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, normalizedText string) (schema.Embedding, bool, error) {
	key := HashKey(embeddingKeyPrefix, normalizedText)

	if data, err := c.store.Get(ctx, key); err == nil {
		var vec schema.Embedding
		if jerr := json.Unmarshal(data, &vec); jerr == nil && len(vec) > 0 {
			return vec, true, nil
		}
		logger.Warnf("embedding cache: corrupt entry for key %s, recomputing", key)
	} else if err != ErrMiss {
		logger.Warnf("embedding cache: read failed, treating as miss: %v", err)
	}

	vec, err := c.embed(ctx, normalizedText)
	if err != nil {
		return nil, false, err
	}

	if data, jerr := json.Marshal(vec); jerr == nil {
		// Writes use a background context so an abandoned query still
		// populates the cache for future identical lookups.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, werr := c.store.SetNX(wctx, key, data, c.ttl); werr != nil {
			logger.Warnf("embedding cache: write failed: %v", werr)
		}
	}
	return vec, false, nil
}
