package fusion

import (
	"sort"
	"time"

	"github.com/tripmesh/tripmesh/schema"
)

// Engine fuses vector and graph candidate lists into one ranked context set.
// Fusion is a pure function of its inputs: same candidates in, same order out.
type Engine struct {
	vectorWeight float64
	graphWeight  float64
}

func NewEngine(vectorWeight, graphWeight float64) *Engine {
	return &Engine{vectorWeight: vectorWeight, graphWeight: graphWeight}
}

// Fuse min-max normalizes each source list independently, combines the
// normalized scores with the source weights, deduplicates by candidate ID
// keeping the higher combined score, sorts by the total order, and truncates
// to topK.
func (e *Engine) Fuse(vector, graph []schema.RetrievalCandidate, mode schema.RetrievalMode, topK int) schema.FusedContext {
	normalize(vector)
	normalize(graph)

	merged := make(map[string]schema.RetrievalCandidate, len(vector)+len(graph))
	admit := func(c schema.RetrievalCandidate, weight float64) {
		c.Combined = weight * c.NormScore
		prev, ok := merged[c.ID]
		if !ok || c.Combined > prev.Combined {
			merged[c.ID] = c
		}
	}
	for _, c := range vector {
		admit(c, e.vectorWeight)
	}
	for _, c := range graph {
		admit(c, e.graphWeight)
	}

	ranked := make([]schema.RetrievalCandidate, 0, len(merged))
	for _, c := range merged {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Less(ranked[j])
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return schema.FusedContext{
		Candidates: ranked,
		Mode:       mode,
		CreatedAt:  time.Now().UTC(),
	}
}

// normalize rescales RawScore into NormScore in [0,1] per source list.
// A singleton or zero-variance list maps every entry to 1.0 so one strong
// result is not erased by its own normalization.
func normalize(candidates []schema.RetrievalCandidate) {
	if len(candidates) == 0 {
		return
	}
	lo, hi := candidates[0].RawScore, candidates[0].RawScore
	for _, c := range candidates[1:] {
		if c.RawScore < lo {
			lo = c.RawScore
		}
		if c.RawScore > hi {
			hi = c.RawScore
		}
	}
	span := hi - lo
	for i := range candidates {
		if span == 0 {
			candidates[i].NormScore = 1.0
		} else {
			candidates[i].NormScore = (candidates[i].RawScore - lo) / span
		}
	}
}
