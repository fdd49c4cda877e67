package vectordb

import (
	"context"
	"fmt"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// Match is one nearest-neighbor hit from the vector index. Score is the
// raw similarity reported by the backend (cosine, in [-1, 1]).
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Provider is the vector index query interface. The batched upsert side is
// owned by the ingestion pipeline and deliberately absent here.
type Provider interface {
	Query(ctx context.Context, vector schema.Embedding, topN int) ([]Match, error)
	Close() error
}

// NewProvider builds a vector index provider from config.
func NewProvider(cfg config.VectorDBConfig) (Provider, error) {
	switch cfg.Provider {
	case "pinecone":
		return newPineconeProvider(cfg)
	case "milvus":
		return newMilvusProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown vectordb provider %q", cfg.Provider)
	}
}
