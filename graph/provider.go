package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// Fact is a graph edge discovered around a seed entity, plus the relevance
// assigned by the store (hop-decayed, already in [0,1]).
type Fact struct {
	Triple    schema.FactTriple
	NodeID    string
	Relevance float64
}

// Provider traverses the knowledge graph around a set of seed entities.
type Provider interface {
	// Neighborhood returns facts within maxHops of the seeds, at most
	// factsPerNode per seed. Seeds unknown to the graph yield no facts
	// and no error.
	Neighborhood(ctx context.Context, seeds []string, maxHops, factsPerNode int) ([]Fact, error)
	Close(ctx context.Context) error
}

func NewProvider(cfg config.GraphConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "neo4j":
		return newNeo4jProvider(cfg)
	default:
		return nil, fmt.Errorf("graph: unknown provider %q", cfg.Provider)
	}
}

// EntityExtractor turns a user query into candidate entity names for graph
// seeding. Kept as an interface so callers can plug an LLM-backed extractor.
type EntityExtractor interface {
	Extract(ctx context.Context, query schema.Query) ([]string, error)
}

var entityToken = regexp.MustCompile(`[a-z0-9][a-z0-9\-']*`)

// stop words skipped by the heuristic extractor. Travel queries are short,
// so anything left after stripping these is worth probing the graph with.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "at": {}, "best": {}, "can": {},
	"do": {}, "for": {}, "from": {}, "good": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "near": {}, "of": {}, "on": {}, "or": {},
	"recommend": {}, "should": {}, "some": {}, "tell": {}, "the": {}, "to": {},
	"visit": {}, "what": {}, "where": {}, "which": {}, "with": {},
}

type heuristicExtractor struct {
	maxSeeds int
}

// NewHeuristicExtractor builds the default extractor: lowercase tokens of
// the normalized query minus stop words, deduplicated, capped at maxSeeds.
func NewHeuristicExtractor(maxSeeds int) EntityExtractor {
	if maxSeeds <= 0 {
		maxSeeds = 5
	}
	return &heuristicExtractor{maxSeeds: maxSeeds}
}

func (e *heuristicExtractor) Extract(_ context.Context, query schema.Query) ([]string, error) {
	tokens := entityToken.FindAllString(query.Normalized, -1)
	seen := make(map[string]struct{}, len(tokens))
	seeds := make([]string, 0, e.maxSeeds)
	for _, tok := range tokens {
		if _, skip := stopWords[tok]; skip {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		seeds = append(seeds, tok)
		if len(seeds) == e.maxSeeds {
			break
		}
	}
	return seeds, nil
}
