package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// hopDecay scales relevance down per hop so first-hop facts always outrank
// second-hop facts from the same seed.
const hopDecay = 0.5

const neighborhoodCypher = `
MATCH (n:Entity)-[r]-(m:Entity)
WHERE n.id = $seed OR toLower(n.name) = $seed
RETURN n.id AS sourceId, type(r) AS relation, m.id AS targetId,
       m.name AS targetName, m.description AS targetDesc, m.type AS targetLabel
LIMIT $limit`

const twoHopCypher = `
MATCH (n:Entity)-[r1]-(mid:Entity)-[r2]-(m:Entity)
WHERE (n.id = $seed OR toLower(n.name) = $seed) AND m <> n
RETURN mid.id AS sourceId, type(r2) AS relation, m.id AS targetId,
       m.name AS targetName, m.description AS targetDesc, m.type AS targetLabel
LIMIT $limit`

type neo4jProvider struct {
	driver neo4j.DriverWithContext
}

func newNeo4jProvider(cfg config.GraphConfig) (*neo4jProvider, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.ConnectTimeoutMs > 0 {
				c.SocketConnectTimeout = time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
			}
		},
	)
	if err != nil {
		return nil, &schema.GraphStoreError{Op: "connect", Err: err}
	}
	return &neo4jProvider{driver: driver}, nil
}

func (p *neo4jProvider) Neighborhood(ctx context.Context, seeds []string, maxHops, factsPerNode int) ([]Fact, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	var facts []Fact
	seen := make(map[string]struct{})
	for _, seed := range seeds {
		hop1, err := p.query(ctx, session, neighborhoodCypher, seed, factsPerNode)
		if err != nil {
			return nil, err
		}
		facts = appendFacts(facts, seen, hop1, 1.0)
		if maxHops >= 2 {
			hop2, err := p.query(ctx, session, twoHopCypher, seed, factsPerNode)
			if err != nil {
				return nil, err
			}
			facts = appendFacts(facts, seen, hop2, hopDecay)
		}
	}
	return facts, nil
}

func (p *neo4jProvider) query(ctx context.Context, session neo4j.SessionWithContext, cypher, seed string, limit int) ([]Fact, error) {
	result, err := session.Run(ctx, cypher, map[string]any{
		"seed":  seed,
		"limit": limit,
	})
	if err != nil {
		return nil, &schema.GraphStoreError{Op: "query", Err: err}
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, &schema.GraphStoreError{Op: "collect", Err: err}
	}
	facts := make([]Fact, 0, len(records))
	for _, rec := range records {
		fields := rec.AsMap()
		triple := schema.FactTriple{
			SourceID:    stringField(fields, "sourceId"),
			Relation:    stringField(fields, "relation"),
			TargetID:    stringField(fields, "targetId"),
			TargetName:  stringField(fields, "targetName"),
			TargetDesc:  stringField(fields, "targetDesc"),
			TargetLabel: stringField(fields, "targetLabel"),
		}
		if triple.SourceID == "" || triple.Relation == "" || triple.TargetID == "" {
			continue
		}
		facts = append(facts, Fact{Triple: triple, NodeID: triple.TargetID})
	}
	return facts, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// appendFacts deduplicates on the triple identity and applies the hop
// relevance to newly admitted facts.
func appendFacts(dst []Fact, seen map[string]struct{}, src []Fact, relevance float64) []Fact {
	for _, f := range src {
		key := fmt.Sprintf("%s|%s|%s", f.Triple.SourceID, f.Triple.Relation, f.Triple.TargetID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		f.Relevance = relevance
		dst = append(dst, f)
	}
	return dst
}

func (p *neo4jProvider) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}
