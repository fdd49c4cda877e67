package schema

import (
	"strings"
	"time"
)

// Source identifies which backing store produced a retrieval candidate.
type Source string

const (
	SourceVector Source = "vector"
	SourceGraph  Source = "graph"
)

// priority returns the tie-break rank of a source; lower sorts first.
func (s Source) priority() int {
	if s == SourceVector {
		return 0
	}
	return 1
}

// RetrievalMode is the process-wide health state of the retrieval backends.
type RetrievalMode int32

const (
	// ModeHybrid means both the vector index and the graph store are healthy.
	ModeHybrid RetrievalMode = iota
	// ModeVectorOnly means the graph store is tripped and graph calls are skipped.
	ModeVectorOnly
	// ModeDegraded means both stores are tripped; only the answer cache serves.
	ModeDegraded
)

func (m RetrievalMode) String() string {
	switch m {
	case ModeHybrid:
		return "hybrid"
	case ModeVectorOnly:
		return "vector_only"
	case ModeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Embedding is a fixed-dimension vector representation of text.
type Embedding []float32

// Query is a normalized user query. Normalized text is the cache key basis;
// the value is immutable once created.
type Query struct {
	Raw            string `json:"raw"`
	Normalized     string `json:"normalized"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// NewQuery normalizes raw query text: lowercased, whitespace collapsed.
func NewQuery(raw, conversationID string) Query {
	return Query{
		Raw:            raw,
		Normalized:     NormalizeText(raw),
		ConversationID: conversationID,
	}
}

// NormalizeText lowercases and collapses all whitespace runs to single spaces.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FactTriple is a knowledge graph fact: source node, relation, target node.
type FactTriple struct {
	SourceID    string `json:"source_id"`
	Relation    string `json:"relation"`
	TargetID    string `json:"target_id"`
	TargetName  string `json:"target_name,omitempty"`
	TargetDesc  string `json:"target_desc,omitempty"`
	TargetLabel string `json:"target_label,omitempty"`
}

// Provenance records where a candidate came from.
type Provenance struct {
	DocumentID string `json:"document_id,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
}

// RetrievalCandidate is a single ranked result from one backing store.
// RawScore is the store's native score (cosine similarity in [-1,1] for
// vector, relevance in [0,1] for graph); NormScore and Combined are filled
// by the fusion engine and always lie in [0,1] and [0, w_v+w_g] respectively.
type RetrievalCandidate struct {
	ID         string      `json:"id"`
	Source     Source      `json:"source"`
	RawScore   float64     `json:"raw_score"`
	NormScore  float64     `json:"norm_score"`
	Combined   float64     `json:"combined"`
	Snippet    string      `json:"snippet,omitempty"`
	Triple     *FactTriple `json:"triple,omitempty"`
	Provenance Provenance  `json:"provenance"`
}

// Less reports the fusion total order: combined score descending, then
// vector before graph, then identifier ascending. Deterministic by design
// of the comparison, never by insertion order.
func (c RetrievalCandidate) Less(other RetrievalCandidate) bool {
	if c.Combined != other.Combined {
		return c.Combined > other.Combined
	}
	if c.Source != other.Source {
		return c.Source.priority() < other.Source.priority()
	}
	return c.ID < other.ID
}

// FusedContext is the ranked, deduplicated context set produced by fusion,
// capped at top_k. It records the retrieval mode it was produced under so
// cached entries from a degraded period are never served as hybrid ones.
type FusedContext struct {
	Candidates []RetrievalCandidate `json:"candidates"`
	Mode       RetrievalMode        `json:"mode"`
	CreatedAt  time.Time            `json:"created_at"`
}

// VectorIDs returns the provenance document ids of vector-sourced candidates.
func (f FusedContext) VectorIDs() []string {
	ids := make([]string, 0, len(f.Candidates))
	for _, c := range f.Candidates {
		if c.Source == SourceVector && c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
