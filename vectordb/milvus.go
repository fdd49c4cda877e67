package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

const (
	milvusVectorField   = "vector"
	milvusMetadataField = "metadata"
)

// milvusProvider queries a Milvus collection with cosine similarity.
// The collection schema mirrors the ingestion pipeline's: a varchar primary
// key, the embedding vector, and a JSON metadata field.
type milvusProvider struct {
	client     client.Client
	collection string
}

func newMilvusProvider(cfg config.VectorDBConfig) (*milvusProvider, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := client.NewClient(ctx, client.Config{
		Address:  fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus: connect: %w", err)
	}
	return &milvusProvider{client: c, collection: cfg.Index}, nil
}

func (p *milvusProvider) Query(ctx context.Context, vector schema.Embedding, topN int) ([]Match, error) {
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("milvus: search params: %w", err)
	}

	results, err := p.client.Search(
		ctx,
		p.collection,
		nil,
		"",
		[]string{milvusMetadataField},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusVectorField,
		entity.COSINE,
		topN,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus: search: %w", err)
	}

	matches := make([]Match, 0, topN)
	for _, rs := range results {
		idCol, ok := rs.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, fmt.Errorf("milvus: unexpected id column type %T", rs.IDs)
		}
		metaCol, _ := rs.Fields.GetColumn(milvusMetadataField).(*entity.ColumnJSONBytes)
		for i := 0; i < rs.ResultCount; i++ {
			id, err := idCol.ValueByIdx(i)
			if err != nil {
				continue
			}
			m := Match{ID: id, Score: float64(rs.Scores[i])}
			if metaCol != nil {
				if raw, err := metaCol.ValueByIdx(i); err == nil {
					var meta map[string]interface{}
					if json.Unmarshal(raw, &meta) == nil {
						m.Metadata = meta
					}
				}
			}
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (p *milvusProvider) Close() error {
	return p.client.Close()
}
