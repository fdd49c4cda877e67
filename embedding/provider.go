package embedding

import (
	"context"
	"fmt"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// Provider computes embeddings for query text.
type Provider interface {
	// GetEmbedding returns a vector of the configured fixed dimension.
	GetEmbedding(ctx context.Context, text string) (schema.Embedding, error)
	// ModelVersion tags cached results; changing the model invalidates them.
	ModelVersion() string
}

// NewProvider builds an embedding provider from config.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
