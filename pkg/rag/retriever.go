package rag

import (
	"context"
	"fmt"

	"github.com/xhad/wellai/internal/types"
)

// VectorRetriever embeds the query and looks up the nearest stored passages.
type VectorRetriever struct {
	embedder types.Embedder
	store    types.VectorStore
}

// NewVectorRetriever combines an embedder with a vector store.
func NewVectorRetriever(embedder types.Embedder, store types.VectorStore) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store}
}

// Retrieve returns passage texts ordered by increasing distance.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	passages := make([]string, 0, len(docs))
	for _, doc := range docs {
		passages = append(passages, doc.Content)
	}
	return passages, nil
}
