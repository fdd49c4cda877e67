package schema

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewQueryNormalization(t *testing.T) {
	q := NewQuery("  Best   BEACHES near\tDa Nang \n", "conv1")
	assert.Equal(t, "best beaches near da nang", q.Normalized)
	assert.Equal(t, "  Best   BEACHES near\tDa Nang \n", q.Raw)
	assert.Equal(t, "conv1", q.ConversationID)
}

func TestNormalizeTextIdempotent(t *testing.T) {
	once := NormalizeText("  Hoi An   Lanterns ")
	assert.Equal(t, once, NormalizeText(once))
}

func TestCandidateTotalOrder(t *testing.T) {
	candidates := []RetrievalCandidate{
		{ID: "b", Source: SourceGraph, Combined: 0.5},
		{ID: "a", Source: SourceVector, Combined: 0.5},
		{ID: "c", Source: SourceVector, Combined: 0.9},
		{ID: "a2", Source: SourceGraph, Combined: 0.5},
		{ID: "z", Source: SourceGraph, Combined: 0.5},
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	// combined desc, then vector before graph, then id asc
	assert.Equal(t, []string{"c", "a", "a2", "b", "z"}, ids)
}

func TestRetrievalModeStrings(t *testing.T) {
	assert.Equal(t, "hybrid", ModeHybrid.String())
	assert.Equal(t, "vector_only", ModeVectorOnly.String())
	assert.Equal(t, "degraded", ModeDegraded.String())
}

func TestFusedContextVectorIDs(t *testing.T) {
	f := FusedContext{
		Candidates: []RetrievalCandidate{
			{ID: "v1", Source: SourceVector},
			{ID: "g1", Source: SourceGraph},
			{ID: "v2", Source: SourceVector},
		},
		CreatedAt: time.Now(),
	}
	assert.Equal(t, []string{"v1", "v2"}, f.VectorIDs())
}

func TestErrorUnwrapChain(t *testing.T) {
	cause := errors.New("socket closed")
	err := &VectorStoreError{Op: "query", Err: &RateLimitedError{RetryAfter: 2 * time.Second, Err: cause}}

	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 2*time.Second, RetryAfterHint(err))
	assert.ErrorIs(t, err, cause)

	assert.False(t, IsRateLimited(&GraphStoreError{Op: "query", Err: cause}))
	assert.Zero(t, RetryAfterHint(cause))
}
