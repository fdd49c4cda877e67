package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// openAIProvider calls an OpenAI-compatible embeddings endpoint. A custom
// BaseURL points it at Gemini or any other OpenAI-compatible gateway.
type openAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

func newOpenAIProvider(cfg config.EmbeddingConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &openAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (p *openAIProvider) ModelVersion() string {
	return fmt.Sprintf("%s/%d", p.model, p.dimensions)
}

func (p *openAIProvider) GetEmbedding(ctx context.Context, text string) (schema.Embedding, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	vec := resp.Data[0].Embedding
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return nil, fmt.Errorf("embedding: got %d dimensions, want %d", len(vec), p.dimensions)
	}
	return schema.Embedding(vec), nil
}

// classify maps provider errors to the retry taxonomy; 429 becomes a
// RateLimitedError so the backoff loop applies the rate-aware delay.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &schema.RateLimitedError{Err: err}
	}
	return err
}
