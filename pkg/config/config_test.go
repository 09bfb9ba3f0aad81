package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no home config or
// inherited overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"GROQ_API", "DEEPSEEK_API", "DATABASE_URL", "OLLAMA_BASE_URL", "WELLAI_ADDR", "WELLAI_LOG_FILE"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "wellai.yaml")

	configData := `
server:
  addr: ":9000"
  read_timeout: 10s
  max_upload_mb: 5

llm:
  temperature: 0.3
  max_tokens: 1024
  providers:
    - name: groq
      base_url: "https://api.groq.com/openai/v1"
      model: "llama3-70b-8192"
      api_key_env: "GROQ_API"
    - name: local
      kind: ollama
      base_url: "http://localhost:11434"
      model: "mistral"

embedder:
  model: "all-minilm"
  dimensions: 384

database:
  url: "postgres://localhost:5432/wellai"
  table_name: "passages"

retrieval:
  k: 4

scraper:
  max_depth: 1
  ignore_patterns:
    - "/login"

processor:
  chunk_size: 500
  chunk_overlap: 100
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0o644))
	t.Setenv("GROQ_API", "gsk_test")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9000", config.Server.Addr)
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 5, config.Server.MaxUploadMB)
	assert.Equal(t, 0.3, config.LLM.Temperature)
	assert.Equal(t, 1024, config.LLM.MaxTokens)

	require.Len(t, config.LLM.Providers, 2)
	assert.Equal(t, "openai", config.LLM.Providers[0].Kind)
	assert.Equal(t, "gsk_test", config.LLM.Providers[0].APIKey)
	assert.Equal(t, "ollama", config.LLM.Providers[1].Kind)
	assert.Empty(t, config.LLM.Providers[1].APIKey)

	assert.Equal(t, "postgres://localhost:5432/wellai", config.Database.URL)
	assert.Equal(t, "passages", config.Database.TableName)
	assert.Equal(t, 4, config.Retrieval.K)
	assert.Equal(t, 5, config.Retrieval.HistoryTurns)
	assert.Equal(t, 1, config.Scraper.MaxDepth)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "release", config.Server.Mode)
	assert.Equal(t, 20, config.Server.MaxUploadMB)
	assert.Equal(t, DefaultProviders(), config.LLM.Providers)
	assert.Equal(t, "http://localhost:11434", config.Embedder.BaseURL)
	assert.Equal(t, "all-minilm", config.Embedder.Model)
	assert.Equal(t, 384, config.Embedder.Dimensions)
	assert.Equal(t, "medical_passages", config.Database.TableName)
	assert.Equal(t, RetrievalConfig{K: 3, HistoryTurns: 5, MinQueryChars: 5}, config.Retrieval)
	assert.Equal(t, ExtractConfig{MinChars: 20, OCRDPI: 300, OCRLanguage: "eng"}, config.Extract)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigSearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("retrieval:\n  k: 7\n"), 0o644))

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7, config.Retrieval.K)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEEPSEEK_API=or_from_dotenv\n"), 0o644))
	t.Setenv("GROQ_API", "gsk_env")
	t.Setenv("DATABASE_URL", "postgres://db:5432/wellai")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("WELLAI_ADDR", "127.0.0.1:3000")
	t.Setenv("WELLAI_LOG_FILE", "/var/log/wellai.log")
	// godotenv never overrides variables that are already set.
	require.NoError(t, os.Unsetenv("DEEPSEEK_API"))

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gsk_env", config.LLM.Providers[0].APIKey)
	assert.Equal(t, "or_from_dotenv", config.LLM.Providers[1].APIKey)
	assert.Equal(t, "postgres://db:5432/wellai", config.Database.URL)
	assert.Equal(t, "http://ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "127.0.0.1:3000", config.Server.Addr)
	assert.Equal(t, "/var/log/wellai.log", config.Log.File)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := isolate(t)

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		var c Config
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "allowed origins",
			mutate: func(c *Config) {
				c.Server.AllowedOrigins = []string{"*", "https://wellai.example", "wellai.example"}
			},
			fields: []string{"server.allowed_origins[2]"},
		},
		{
			name: "invalid llm settings",
			mutate: func(c *Config) {
				c.LLM.Temperature = 3
				c.LLM.MaxTokens = -1
			},
			fields: []string{"llm.temperature", "llm.max_tokens"},
		},
		{
			name: "bad providers",
			mutate: func(c *Config) {
				c.LLM.Providers = []ProviderConfig{
					{Name: "groq", Kind: "openai", Model: "m"},
					{Name: "groq", Kind: "bard", BaseURL: "not a url"},
				}
			},
			fields: []string{
				"llm.providers[1].name",
				"llm.providers[1].kind",
				"llm.providers[1].model",
				"llm.providers[1].base_url",
			},
		},
		{
			name: "storage and retrieval",
			mutate: func(c *Config) {
				c.Database.URL = "mysql://localhost"
				c.Database.TableName = "drop table;"
				c.Retrieval.K = 0
				c.Embedder.Dimensions = 0
			},
			fields: []string{"embedder.dimensions", "database.url", "database.table_name", "retrieval.k"},
		},
		{
			name: "ingest settings",
			mutate: func(c *Config) {
				c.Scraper.RateLimit = 0
				c.Scraper.AllowedExtensions = []string{"html"}
				c.Processor.ChunkOverlap = c.Processor.ChunkSize
				c.Extract.OCRDPI = 10
			},
			fields: []string{"extract.ocr_dpi", "scraper.rate_limit", "scraper.allowed_extensions", "processor.chunk_overlap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			var got []string
			for _, e := range c.Validate() {
				got = append(got, e.Field)
				assert.NotEmpty(t, e.Error())
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
