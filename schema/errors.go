package schema

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the retrieval pipeline. Retriable transport failures
// wrap a RateLimitedError so the retry layer can distinguish them from
// permanent faults while callers still match on the store-level type.

// VectorStoreError reports a failed call against the vector index.
type VectorStoreError struct {
	Op  string
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store: %s: %v", e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// GraphStoreError reports a failed call against the knowledge graph.
type GraphStoreError struct {
	Op  string
	Err error
}

func (e *GraphStoreError) Error() string {
	return fmt.Sprintf("graph store: %s: %v", e.Op, e.Err)
}

func (e *GraphStoreError) Unwrap() error { return e.Err }

// EmbeddingUnavailableError means the embedding provider failed after retries.
type EmbeddingUnavailableError struct {
	Err error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable: %v", e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError signals a provider 429. RetryAfter carries the provider's
// retry-after hint when one was supplied; zero means no hint.
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// CacheUnavailableError means the cache store failed. Caches are best effort:
// the orchestrator treats this as a miss, never as a query failure.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable: %s: %v", e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error { return e.Err }

// GenerationError reports a failed generation provider call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err wraps a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// RetryAfterHint extracts the provider retry-after hint, or zero.
func RetryAfterHint(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
