package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tripmesh/tripmesh/common/httpx"
	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// pineconeProvider queries a Pinecone serverless index over its REST API.
type pineconeProvider struct {
	baseURL    string
	apiKey     string
	namespace  string
	httpClient *http.Client
}

func newPineconeProvider(cfg config.VectorDBConfig) (*pineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &pineconeProvider{
		baseURL:    "https://" + cfg.Host,
		apiKey:     cfg.APIKey,
		namespace:  cfg.Namespace,
		httpClient: httpx.New(timeout),
	}, nil
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

func (p *pineconeProvider) Query(ctx context.Context, vector schema.Embedding, topN int) ([]Match, error) {
	body, err := json.Marshal(pineconeQueryRequest{
		Vector:          vector,
		TopK:            topN,
		Namespace:       p.namespace,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("pinecone: build request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &schema.RateLimitedError{
			RetryAfter: retryAfterHeader(resp),
			Err:        fmt.Errorf("pinecone: status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pinecone: status %d: %s", resp.StatusCode, string(data))
	}

	var out pineconeQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("pinecone: decode response: %w", err)
	}

	matches := make([]Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

func (p *pineconeProvider) Close() error { return nil }

func retryAfterHeader(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
