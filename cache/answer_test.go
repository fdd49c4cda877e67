package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/schema"
)

func TestFingerprintModeSensitivity(t *testing.T) {
	hybrid := Fingerprint("best beaches in lisbon", schema.ModeHybrid, "text-embedding-3-small/1536")
	vectorOnly := Fingerprint("best beaches in lisbon", schema.ModeVectorOnly, "text-embedding-3-small/1536")
	assert.NotEqual(t, hybrid, vectorOnly)

	again := Fingerprint("best beaches in lisbon", schema.ModeHybrid, "text-embedding-3-small/1536")
	assert.Equal(t, hybrid, again)
}

func TestFingerprintModelVersionSensitivity(t *testing.T) {
	a := Fingerprint("q", schema.ModeHybrid, "m1/1536")
	b := Fingerprint("q", schema.ModeHybrid, "m2/1536")
	assert.NotEqual(t, a, b)
}

func TestAnswerCacheRoundTrip(t *testing.T) {
	c := NewAnswerCache(NewMemory(16), time.Hour)
	fused := &schema.FusedContext{
		Candidates: []schema.RetrievalCandidate{
			{ID: "attr1", Source: schema.SourceVector, RawScore: 0.9, NormScore: 1.0, Combined: 0.6},
		},
		Mode:      schema.ModeHybrid,
		CreatedAt: time.Now().UTC(),
	}
	fp := Fingerprint("q", schema.ModeHybrid, "m/1536")

	_, ok := c.Lookup(context.Background(), fp)
	assert.False(t, ok)

	c.Store(context.Background(), fp, fused)
	got, ok := c.Lookup(context.Background(), fp)
	require.True(t, ok)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "attr1", got.Candidates[0].ID)
	assert.Equal(t, schema.ModeHybrid, got.Mode)
}

func TestAnswerCacheCorruptEntryIsMiss(t *testing.T) {
	store := NewMemory(16)
	fp := Fingerprint("q", schema.ModeHybrid, "m")
	_, err := store.SetNX(context.Background(), fp, []byte("{not json"), time.Hour)
	require.NoError(t, err)

	c := NewAnswerCache(store, time.Hour)
	_, ok := c.Lookup(context.Background(), fp)
	assert.False(t, ok)
}

func TestAnswerCacheStoreFailureIsSilent(t *testing.T) {
	c := NewAnswerCache(failingStore{}, time.Hour)
	c.Store(context.Background(), "fp", &schema.FusedContext{})
	_, ok := c.Lookup(context.Background(), "fp")
	assert.False(t, ok)
}
