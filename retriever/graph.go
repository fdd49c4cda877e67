package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripmesh/tripmesh/graph"
	"github.com/tripmesh/tripmesh/schema"
)

// GraphRetriever maps knowledge graph facts to retrieval candidates.
type GraphRetriever struct {
	provider     graph.Provider
	factsPerNode int
}

func NewGraphRetriever(provider graph.Provider, factsPerNode int) *GraphRetriever {
	if factsPerNode <= 0 {
		factsPerNode = 10
	}
	return &GraphRetriever{provider: provider, factsPerNode: factsPerNode}
}

// Traverse expands the seed entities into graph-sourced candidates. An empty
// result is a success; only connectivity or query failures return an error.
func (r *GraphRetriever) Traverse(ctx context.Context, seeds []string, maxHops int) ([]schema.RetrievalCandidate, error) {
	facts, err := r.provider.Neighborhood(ctx, seeds, maxHops, r.factsPerNode)
	if err != nil {
		var gerr *schema.GraphStoreError
		if errors.As(err, &gerr) {
			return nil, err
		}
		return nil, &schema.GraphStoreError{Op: "traverse", Err: err}
	}

	candidates := make([]schema.RetrievalCandidate, 0, len(facts))
	for _, f := range facts {
		triple := f.Triple
		candidates = append(candidates, schema.RetrievalCandidate{
			ID:         factID(triple),
			Source:     schema.SourceGraph,
			RawScore:   f.Relevance,
			Snippet:    factSnippet(triple),
			Triple:     &triple,
			Provenance: schema.Provenance{NodeID: f.NodeID},
		})
	}
	return candidates, nil
}

func factID(t schema.FactTriple) string {
	return fmt.Sprintf("%s|%s|%s", t.SourceID, t.Relation, t.TargetID)
}

// factSnippet renders "[src] --REL--> [dst] name: desc".
func factSnippet(t schema.FactTriple) string {
	s := fmt.Sprintf("[%s] --%s--> [%s]", t.SourceID, t.Relation, t.TargetID)
	if t.TargetName != "" {
		s += " " + t.TargetName
	}
	if t.TargetDesc != "" {
		s += ": " + t.TargetDesc
	}
	return s
}
