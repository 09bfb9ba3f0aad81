package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Database  DatabaseConfig  `yaml:"database"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Extract   ExtractConfig   `yaml:"extract"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Processor ProcessorConfig `yaml:"processor"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release or test
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // cross-origin callers of /ws and /healthz
}

type LLMConfig struct {
	Temperature float64          `yaml:"temperature"`
	MaxTokens   int              `yaml:"max_tokens"`
	Providers   []ProviderConfig `yaml:"providers"`
}

// ProviderConfig describes one chat completion endpoint. Providers are tried
// in list order.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // openai or ollama
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`

	// APIKey is read from the APIKeyEnv environment variable, never from the file.
	APIKey string `yaml:"-"`
}

type EmbedderConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
}

type RetrievalConfig struct {
	K             int `yaml:"k"`
	HistoryTurns  int `yaml:"history_turns"`
	MinQueryChars int `yaml:"min_query_chars"`
}

type ExtractConfig struct {
	MinChars    int     `yaml:"min_chars"`
	OCRDPI      float64 `yaml:"ocr_dpi"`
	OCRLanguage string  `yaml:"ocr_language"`
}

type ScraperConfig struct {
	MaxDepth          int           `yaml:"max_depth"`
	MaxPages          int           `yaml:"max_pages"`
	RateLimit         float64       `yaml:"rate_limit"`
	Timeout           time.Duration `yaml:"timeout"`
	IgnorePatterns    []string      `yaml:"ignore_patterns"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type ProcessorConfig struct {
	ChunkSize       int  `yaml:"chunk_size"`
	ChunkOverlap    int  `yaml:"chunk_overlap"`
	MinChunkLength  int  `yaml:"min_chunk_length"`
	RemoveStopwords bool `yaml:"remove_stopwords"`
}

type LogConfig struct {
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

// DefaultProviders is the chain used when the file lists none: Groq first,
// then DeepSeek through OpenRouter.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:      "groq",
			Kind:      "openai",
			BaseURL:   "https://api.groq.com/openai/v1",
			Model:     "llama3-70b-8192",
			APIKeyEnv: "GROQ_API",
		},
		{
			Name:      "deepseek",
			Kind:      "openai",
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "deepseek/deepseek-chat",
			APIKeyEnv: "DEEPSEEK_API",
		},
	}
}

// searchPaths lists where LoadConfig looks when no path is given.
func searchPaths() []string {
	paths := []string{"config.yaml", "config.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wellai", "config.yaml"))
	}
	return append(paths, "/etc/wellai/config.yaml")
}

// LoadConfig reads .env, then the YAML file at path (or the first file found
// in the default locations), applies environment overrides and defaults.
// Without any file the defaults and environment are used.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	if path == "" {
		for _, loc := range searchPaths() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	mergeWithEnv(&config)
	applyDefaults(&config)
	resolveKeys(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 3 * time.Minute
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 15 * time.Second
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 20
	}
	if config.Server.SessionTTL == 0 {
		config.Server.SessionTTL = 2 * time.Hour
	}

	if len(config.LLM.Providers) == 0 {
		config.LLM.Providers = DefaultProviders()
	}
	for i := range config.LLM.Providers {
		if config.LLM.Providers[i].Kind == "" {
			config.LLM.Providers[i].Kind = "openai"
		}
	}

	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "all-minilm"
	}
	if config.Embedder.Dimensions == 0 {
		config.Embedder.Dimensions = 384
	}
	if config.Embedder.BatchSize == 0 {
		config.Embedder.BatchSize = 64
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "medical_passages"
	}

	if config.Retrieval.K == 0 {
		config.Retrieval.K = 3
	}
	if config.Retrieval.HistoryTurns == 0 {
		config.Retrieval.HistoryTurns = 5
	}
	if config.Retrieval.MinQueryChars == 0 {
		config.Retrieval.MinQueryChars = 5
	}

	if config.Extract.MinChars == 0 {
		config.Extract.MinChars = 20
	}
	if config.Extract.OCRDPI == 0 {
		config.Extract.OCRDPI = 300
	}
	if config.Extract.OCRLanguage == "" {
		config.Extract.OCRLanguage = "eng"
	}

	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 2
	}
	if config.Scraper.MaxPages == 0 {
		config.Scraper.MaxPages = 200
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 30 * time.Second
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm"}
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 100
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if addr := os.Getenv("WELLAI_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
	if file := os.Getenv("WELLAI_LOG_FILE"); file != "" {
		config.Log.File = file
	}
}

func resolveKeys(config *Config) {
	for i := range config.LLM.Providers {
		p := &config.LLM.Providers[i]
		if p.APIKeyEnv == "" && p.Kind == "openai" {
			p.APIKeyEnv = strings.ToUpper(p.Name) + "_API"
		}
		if p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
	}
}
