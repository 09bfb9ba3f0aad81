package store

import (
	"context"
	"os"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/wellai/internal/models"
)

func vec(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func testDocs(dim int) []models.ProcessedDocument {
	return []models.ProcessedDocument{
		{
			Document: models.Document{
				ID:       "harrison_ch12",
				URL:      "file://harrison.pdf",
				Title:    "Anemia",
				Metadata: map[string]interface{}{"source": "test"},
			},
			Chunks:    []string{"Anemia is a reduction in hemoglobin.", "Iron deficiency is the most common cause."},
			Embedding: [][]float32{vec(dim, 0), vec(dim, 1)},
		},
		{
			Document:  models.Document{ID: "platelets", URL: "https://example.com/platelets", Title: "Platelets"},
			Chunks:    []string{"Thrombocytopenia is a low platelet count."},
			Embedding: [][]float32{vec(dim, 2)},
		},
	}
}

func TestPassageRows(t *testing.T) {
	rows, err := passageRows(testDocs(4), 4)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "harrison_ch12_0", rows[0].id)
	assert.Equal(t, "harrison_ch12_1", rows[1].id)
	assert.Equal(t, 1, rows[1].chunkIndex)
	assert.Equal(t, "file://harrison.pdf", rows[1].source)
	assert.Equal(t, "platelets_0", rows[2].id)
	assert.Equal(t, pgvector.NewVector([]float32{0, 0, 1, 0}), rows[2].embedding)
}

func TestPassageRowsRejectsMismatches(t *testing.T) {
	docs := testDocs(4)
	docs[0].Embedding = docs[0].Embedding[:1]
	_, err := passageRows(docs, 4)
	assert.ErrorContains(t, err, "2 chunks but 1 embeddings")

	_, err = passageRows(testDocs(4), 384)
	assert.ErrorContains(t, err, "expected 384")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hemoglobin 10", sanitize("Hemo\x00globin \xff10"))
	assert.Equal(t, "µg/dL", sanitize("µg/dL"))
}

func TestInvalidTableName(t *testing.T) {
	_, err := NewWithConfig(context.Background(), VectorStoreConfig{TableName: "passages; DROP TABLE x"})
	assert.ErrorContains(t, err, "invalid table name")
}

func TestVectorStore(t *testing.T) {
	connString := os.Getenv("WELLAI_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("WELLAI_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewWithConfig(ctx, VectorStoreConfig{
		ConnString: connString,
		TableName:  "test_medical_passages",
		VectorDim:  4,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Store(ctx, testDocs(4)))

	results, err := s.Query(ctx, vec(4, 2), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Thrombocytopenia is a low platelet count.", results[0].Content)
	assert.Equal(t, "https://example.com/platelets", results[0].URL)

	results, err = s.Query(ctx, vec(4, 0), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Anemia", results[0].Title)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(3))

	ro, err := NewWithConfig(ctx, VectorStoreConfig{ConnString: connString, TableName: "test_medical_passages", VectorDim: 4, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	assert.ErrorIs(t, ro.Store(ctx, testDocs(4)), ErrReadOnly)
}
