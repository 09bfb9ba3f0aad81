package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Model      string
	BaseURL    string // Ollama server URL
	Dimensions int    // expected vector length, 0 to skip the check
	BatchSize  int
}

// Embedder turns text into vectors with an Ollama embedding model.
type Embedder struct {
	config   EmbedderConfig
	embedder embeddings.Embedder
}

// NewEmbedderWithConfig connects to the Ollama server described by config.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "all-minilm"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	client, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}
	return NewEmbedderWithClient(config, client)
}

// NewEmbedderWithClient wraps any client able to create embeddings.
func NewEmbedderWithClient(config EmbedderConfig, client embeddings.EmbedderClient) (*Embedder, error) {
	var opts []embeddings.Option
	if config.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(config.BatchSize))
	}
	e, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &Embedder{config: config, embedder: e}, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := e.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedDocuments embeds texts in batches, preserving order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	// The underlying embedder rewrites newlines in place.
	vecs, err := e.embedder.EmbedDocuments(ctx, append([]string(nil), texts...))
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for _, v := range vecs {
		if err := e.check(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *Embedder) check(vec []float32) error {
	if e.config.Dimensions > 0 && len(vec) != e.config.Dimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.config.Dimensions)
	}
	return nil
}
