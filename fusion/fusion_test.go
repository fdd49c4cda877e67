package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/schema"
)

func vectorCandidates(scores ...float64) []schema.RetrievalCandidate {
	out := make([]schema.RetrievalCandidate, 0, len(scores))
	for i, s := range scores {
		out = append(out, schema.RetrievalCandidate{
			ID:       string(rune('a' + i)),
			Source:   schema.SourceVector,
			RawScore: s,
		})
	}
	return out
}

func graphCandidates(scores ...float64) []schema.RetrievalCandidate {
	out := make([]schema.RetrievalCandidate, 0, len(scores))
	for i, s := range scores {
		out = append(out, schema.RetrievalCandidate{
			ID:       string(rune('p' + i)),
			Source:   schema.SourceGraph,
			RawScore: s,
		})
	}
	return out
}

func TestFuseBeachQueryOrdering(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	vector := vectorCandidates(0.91, 0.85, 0.80, 0.77, 0.70)
	graph := graphCandidates(0.9, 0.6, 0.4)

	fused := engine.Fuse(vector, graph, schema.ModeHybrid, 5)
	require.Len(t, fused.Candidates, 5)

	top := fused.Candidates[0]
	assert.Equal(t, "a", top.ID)
	assert.Equal(t, schema.SourceVector, top.Source)
	assert.InDelta(t, 1.0, top.NormScore, 1e-9)
	assert.InDelta(t, 0.6, top.Combined, 1e-9)

	// top graph entity normalizes to 1.0 and combines to 0.4
	var topGraph *schema.RetrievalCandidate
	for i := range fused.Candidates {
		if fused.Candidates[i].Source == schema.SourceGraph {
			topGraph = &fused.Candidates[i]
			break
		}
	}
	require.NotNil(t, topGraph)
	assert.InDelta(t, 0.4, topGraph.Combined, 1e-9)

	for i := 1; i < len(fused.Candidates); i++ {
		assert.False(t, fused.Candidates[i].Less(fused.Candidates[i-1]),
			"candidates out of order at %d", i)
	}
}

func TestFuseDeterministic(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	for run := 0; run < 10; run++ {
		fused := engine.Fuse(
			vectorCandidates(0.91, 0.85, 0.80, 0.77, 0.70),
			graphCandidates(0.9, 0.6, 0.4),
			schema.ModeHybrid, 5,
		)
		ids := make([]string, 0, len(fused.Candidates))
		for _, c := range fused.Candidates {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"a", "b", "p", "c", "d"}, ids)
	}
}

func TestFuseScoreBounds(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	fused := engine.Fuse(
		vectorCandidates(-0.3, 0.2, 0.95),
		graphCandidates(0.0, 1.0),
		schema.ModeHybrid, 10,
	)
	for _, c := range fused.Candidates {
		assert.GreaterOrEqual(t, c.NormScore, 0.0)
		assert.LessOrEqual(t, c.NormScore, 1.0)
		assert.GreaterOrEqual(t, c.Combined, 0.0)
		assert.LessOrEqual(t, c.Combined, 1.0)
		assert.False(t, math.IsNaN(c.Combined))
	}
}

func TestFuseSingletonNormalizesToOne(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	fused := engine.Fuse(vectorCandidates(0.42), nil, schema.ModeVectorOnly, 5)
	require.Len(t, fused.Candidates, 1)
	assert.InDelta(t, 1.0, fused.Candidates[0].NormScore, 1e-9)
	assert.InDelta(t, 0.6, fused.Candidates[0].Combined, 1e-9)
}

func TestFuseZeroVarianceNormalizesToOne(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	fused := engine.Fuse(vectorCandidates(0.5, 0.5, 0.5), nil, schema.ModeHybrid, 5)
	require.Len(t, fused.Candidates, 3)
	for _, c := range fused.Candidates {
		assert.InDelta(t, 1.0, c.NormScore, 1e-9)
	}
}

func TestFuseDedupKeepsHigherScore(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	vector := []schema.RetrievalCandidate{
		{ID: "dup", Source: schema.SourceVector, RawScore: 0.9},
		{ID: "other", Source: schema.SourceVector, RawScore: 0.1},
	}
	graph := []schema.RetrievalCandidate{
		{ID: "dup", Source: schema.SourceGraph, RawScore: 0.2},
		{ID: "g2", Source: schema.SourceGraph, RawScore: 0.8},
	}
	fused := engine.Fuse(vector, graph, schema.ModeHybrid, 10)

	count := 0
	for _, c := range fused.Candidates {
		if c.ID == "dup" {
			count++
			// vector copy wins: 0.6*1.0 beats 0.4*0.0
			assert.Equal(t, schema.SourceVector, c.Source)
			assert.InDelta(t, 0.6, c.Combined, 1e-9)
		}
	}
	assert.Equal(t, 1, count)
}

func TestFuseTieBreaks(t *testing.T) {
	engine := NewEngine(0.5, 0.5)
	vector := []schema.RetrievalCandidate{{ID: "v1", Source: schema.SourceVector, RawScore: 0.7}}
	graph := []schema.RetrievalCandidate{{ID: "g1", Source: schema.SourceGraph, RawScore: 0.7}}

	// both singletons normalize to 1.0 and combine to 0.5; vector sorts first
	fused := engine.Fuse(vector, graph, schema.ModeHybrid, 5)
	require.Len(t, fused.Candidates, 2)
	assert.Equal(t, "v1", fused.Candidates[0].ID)
	assert.Equal(t, "g1", fused.Candidates[1].ID)
}

func TestFuseTruncatesToTopK(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	fused := engine.Fuse(
		vectorCandidates(0.9, 0.8, 0.7, 0.6),
		graphCandidates(0.9, 0.8, 0.7),
		schema.ModeHybrid, 3,
	)
	assert.Len(t, fused.Candidates, 3)
}

func TestFuseRecordsMode(t *testing.T) {
	engine := NewEngine(0.6, 0.4)
	fused := engine.Fuse(vectorCandidates(0.9), nil, schema.ModeVectorOnly, 5)
	assert.Equal(t, schema.ModeVectorOnly, fused.Mode)
	assert.False(t, fused.CreatedAt.IsZero())
}
