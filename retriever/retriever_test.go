package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/graph"
	"github.com/tripmesh/tripmesh/schema"
	"github.com/tripmesh/tripmesh/vectordb"
)

type stubVectorProvider struct {
	matches []vectordb.Match
	err     error
}

func (s *stubVectorProvider) Query(context.Context, schema.Embedding, int) ([]vectordb.Match, error) {
	return s.matches, s.err
}

func (s *stubVectorProvider) Close() error { return nil }

func TestVectorSearchBuildsSnippets(t *testing.T) {
	provider := &stubVectorProvider{matches: []vectordb.Match{
		{ID: "attr2", Score: 0.7, Metadata: map[string]interface{}{"name": "Marble Mountains"}},
		{ID: "attr1", Score: 0.9, Metadata: map[string]interface{}{
			"name": "My Khe Beach", "type": "beach", "city": "Da Nang",
			"description": "long sandy beach",
		}},
		{ID: "attr3", Score: 0.5},
	}}
	r := NewVectorRetriever(provider)

	candidates, err := r.Search(context.Background(), schema.Embedding{0.1}, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// sorted by raw score descending
	assert.Equal(t, "attr1", candidates[0].ID)
	assert.Equal(t, "[attr1] My Khe Beach (beach) in Da Nang: long sandy beach", candidates[0].Snippet)
	assert.Equal(t, "[attr2] Marble Mountains", candidates[1].Snippet)
	assert.Equal(t, "[attr3]", candidates[2].Snippet)
	assert.Equal(t, schema.SourceVector, candidates[0].Source)
	assert.Equal(t, "attr1", candidates[0].Provenance.DocumentID)
}

func TestVectorSearchWrapsErrors(t *testing.T) {
	rateLimited := &schema.RateLimitedError{Err: errors.New("429")}
	r := NewVectorRetriever(&stubVectorProvider{err: rateLimited})

	_, err := r.Search(context.Background(), schema.Embedding{0.1}, 5)
	require.Error(t, err)
	var verr *schema.VectorStoreError
	assert.True(t, errors.As(err, &verr))
	assert.True(t, schema.IsRateLimited(err), "rate limit stays visible through the wrap")
}

type stubGraphProvider struct {
	facts []graph.Fact
	err   error
}

func (s *stubGraphProvider) Neighborhood(context.Context, []string, int, int) ([]graph.Fact, error) {
	return s.facts, s.err
}

func (s *stubGraphProvider) Close(context.Context) error { return nil }

func TestGraphTraverseBuildsFactCandidates(t *testing.T) {
	provider := &stubGraphProvider{facts: []graph.Fact{
		{
			Triple: schema.FactTriple{
				SourceID: "city1", Relation: "HAS_ATTRACTION", TargetID: "attr1",
				TargetName: "My Khe Beach", TargetDesc: "long sandy beach",
			},
			NodeID:    "attr1",
			Relevance: 1.0,
		},
	}}
	r := NewGraphRetriever(provider, 10)

	candidates, err := r.Traverse(context.Background(), []string{"city1"}, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "city1|HAS_ATTRACTION|attr1", c.ID)
	assert.Equal(t, schema.SourceGraph, c.Source)
	assert.Equal(t, "[city1] --HAS_ATTRACTION--> [attr1] My Khe Beach: long sandy beach", c.Snippet)
	assert.Equal(t, 1.0, c.RawScore)
	assert.Equal(t, "attr1", c.Provenance.NodeID)
	require.NotNil(t, c.Triple)
	assert.Equal(t, "HAS_ATTRACTION", c.Triple.Relation)
}

func TestGraphTraverseEmptyIsSuccess(t *testing.T) {
	r := NewGraphRetriever(&stubGraphProvider{}, 10)
	candidates, err := r.Traverse(context.Background(), []string{"unknown"}, 1)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGraphTraverseWrapsErrors(t *testing.T) {
	r := NewGraphRetriever(&stubGraphProvider{err: errors.New("bolt handshake failed")}, 10)
	_, err := r.Traverse(context.Background(), []string{"x"}, 1)
	require.Error(t, err)
	var gerr *schema.GraphStoreError
	assert.True(t, errors.As(err, &gerr))
}
