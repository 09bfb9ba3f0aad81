package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/wellai/internal/models"
)

// ErrReadOnly is returned by Store on a store opened read-only.
var ErrReadOnly = errors.New("vector store is read-only")

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
	// ReadOnly skips schema creation and rejects writes. The server opens the
	// passage index this way; only ingest writes to it.
	ReadOnly bool
}

// VectorStore keeps medical reference passages and their embeddings in
// PostgreSQL with the pgvector extension.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "medical_passages"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // all-minilm
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 3
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if !config.ReadOnly {
		if err := vs.initialize(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

type passageRow struct {
	id         string
	source     string
	title      string
	content    string
	chunkIndex int
	embedding  pgvector.Vector
	metadata   map[string]interface{}
}

// passageRows flattens documents into one row per chunk. Every chunk must
// carry an embedding of the configured dimension.
func passageRows(docs []models.ProcessedDocument, dim int) ([]passageRow, error) {
	var rows []passageRow
	for _, doc := range docs {
		if len(doc.Embedding) != len(doc.Chunks) {
			return nil, fmt.Errorf("document %s: %d chunks but %d embeddings", doc.ID, len(doc.Chunks), len(doc.Embedding))
		}
		title := sanitize(doc.Title)
		for i, chunk := range doc.Chunks {
			if dim > 0 && len(doc.Embedding[i]) != dim {
				return nil, fmt.Errorf("document %s chunk %d: embedding has %d dimensions, expected %d",
					doc.ID, i, len(doc.Embedding[i]), dim)
			}
			rows = append(rows, passageRow{
				id:         fmt.Sprintf("%s_%d", doc.ID, i),
				source:     doc.URL,
				title:      title,
				content:    sanitize(chunk),
				chunkIndex: i,
				embedding:  pgvector.NewVector(doc.Embedding[i]),
				metadata:   doc.Metadata,
			})
		}
	}
	return rows, nil
}

// Store upserts every chunk of docs in one transaction.
func (vs *VectorStore) Store(ctx context.Context, docs []models.ProcessedDocument) error {
	if vs.config.ReadOnly {
		return ErrReadOnly
	}

	rows, err := passageRows(docs, vs.config.VectorDim)
	if err != nil {
		return err
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, title, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt, r.id, r.source, r.title, r.content, r.chunkIndex, r.embedding, r.metadata); err != nil {
			return fmt.Errorf("failed to insert passage %s: %w", r.id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query returns up to limit passages ordered by cosine distance to the
// embedding. A zero limit uses the configured search limit.
func (vs *VectorStore) Query(ctx context.Context, queryEmbedding []float32, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, source, title, content, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var title *string
		if err := rows.Scan(&doc.ID, &doc.URL, &title, &doc.Content, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if title != nil {
			doc.Title = *title
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passages: %w", err)
	}

	return docs, nil
}

// Count returns the number of stored passages.
func (vs *VectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (vs *VectorStore) Ping(ctx context.Context) error {
	return vs.pool.Ping(ctx)
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitize drops invalid UTF-8 and NUL bytes, both rejected by PostgreSQL text columns.
func sanitize(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
