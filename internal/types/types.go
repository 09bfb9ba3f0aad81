package types

import (
	"context"

	"github.com/xhad/wellai/internal/models"
)

// Core interfaces
type VectorStore interface {
	Store(ctx context.Context, docs []models.ProcessedDocument) error
	Query(ctx context.Context, embedding []float32, limit int) ([]models.Document, error)
	Close()
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
}

type Scraper interface {
	Scrape(ctx context.Context, url string) ([]models.Document, error)
}
