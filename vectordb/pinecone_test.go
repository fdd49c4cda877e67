package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/common/httpx"
	"github.com/tripmesh/tripmesh/schema"
)

func pineconeTestProvider(serverURL string) *pineconeProvider {
	return &pineconeProvider{
		baseURL:    serverURL,
		apiKey:     "test-key",
		namespace:  "travel",
		httpClient: httpx.New(5 * time.Second),
	}
}

func TestPineconeQuery(t *testing.T) {
	var gotReq pineconeQueryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"matches": []map[string]interface{}{
				{"id": "attr1", "score": 0.91, "metadata": map[string]interface{}{
					"name": "My Khe Beach", "type": "beach", "city": "Da Nang",
				}},
				{"id": "attr2", "score": 0.85},
			},
		})
	}))
	defer server.Close()

	p := pineconeTestProvider(server.URL)
	matches, err := p.Query(context.Background(), schema.Embedding{0.1, 0.2}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, gotReq.TopK)
	assert.Equal(t, "travel", gotReq.Namespace)
	assert.True(t, gotReq.IncludeMetadata)

	require.Len(t, matches, 2)
	assert.Equal(t, "attr1", matches[0].ID)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-9)
	assert.Equal(t, "My Khe Beach", matches[0].Metadata["name"])
	assert.Nil(t, matches[1].Metadata)
}

func TestPineconeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := pineconeTestProvider(server.URL)
	_, err := p.Query(context.Background(), schema.Embedding{0.1}, 5)
	require.Error(t, err)
	assert.True(t, schema.IsRateLimited(err))
	assert.Equal(t, 7*time.Second, schema.RetryAfterHint(err))
}

func TestPineconeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := pineconeTestProvider(server.URL)
	_, err := p.Query(context.Background(), schema.Embedding{0.1}, 5)
	require.Error(t, err)
	assert.False(t, schema.IsRateLimited(err))
	assert.Contains(t, err.Error(), "503")
}
