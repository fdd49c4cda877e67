package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tripmesh/tripmesh/schema"
	"github.com/tripmesh/tripmesh/vectordb"
)

// VectorRetriever maps vector index matches to retrieval candidates.
type VectorRetriever struct {
	provider vectordb.Provider
}

func NewVectorRetriever(provider vectordb.Provider) *VectorRetriever {
	return &VectorRetriever{provider: provider}
}

// Search queries the vector index and returns candidates sorted by raw
// similarity descending. Rate-limit errors from the backend are preserved
// as the wrapped cause.
func (r *VectorRetriever) Search(ctx context.Context, embedding schema.Embedding, topN int) ([]schema.RetrievalCandidate, error) {
	matches, err := r.provider.Query(ctx, embedding, topN)
	if err != nil {
		return nil, &schema.VectorStoreError{Op: "query", Err: err}
	}

	candidates := make([]schema.RetrievalCandidate, 0, len(matches))
	for _, m := range matches {
		if m.ID == "" {
			continue
		}
		candidates = append(candidates, schema.RetrievalCandidate{
			ID:         m.ID,
			Source:     schema.SourceVector,
			RawScore:   m.Score,
			Snippet:    snippetFromMetadata(m.ID, m.Metadata),
			Provenance: schema.Provenance{DocumentID: m.ID},
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RawScore > candidates[j].RawScore
	})
	return candidates, nil
}

// snippetFromMetadata renders the travel node fields into the display form
// "[id] name (type) in city: description".
func snippetFromMetadata(id string, meta map[string]interface{}) string {
	name := metaString(meta, "name")
	if name == "" {
		return fmt.Sprintf("[%s]", id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", id, name)
	if t := metaString(meta, "type"); t != "" {
		fmt.Fprintf(&b, " (%s)", t)
	}
	if city := metaString(meta, "city"); city != "" {
		fmt.Fprintf(&b, " in %s", city)
	}
	if desc := metaString(meta, "description"); desc != "" {
		fmt.Fprintf(&b, ": %s", desc)
	}
	return b.String()
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}
