package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, format string, args ...interface{}) {
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if c.Server.Addr == "" {
		add("server.addr", "listen address is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		add("server.mode", "mode must be debug, release or test")
	}
	if c.Server.MaxUploadMB < 1 || c.Server.MaxUploadMB > 200 {
		add("server.max_upload_mb", "max_upload_mb must be between 1 and 200")
	}
	if c.Server.SessionTTL < 0 {
		add("server.session_ttl", "session_ttl cannot be negative")
	}
	for i, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !isHTTPURL(origin) {
			add(fmt.Sprintf("server.allowed_origins[%d]", i), "origin must be * or an http(s) URL")
		}
	}

	// LLM
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 || c.LLM.MaxTokens > 32768 {
		add("llm.max_tokens", "max_tokens must be between 0 and 32768")
	}
	if len(c.LLM.Providers) == 0 {
		add("llm.providers", "at least one provider is required")
	}
	seen := make(map[string]bool)
	for i, p := range c.LLM.Providers {
		field := fmt.Sprintf("llm.providers[%d]", i)
		if p.Name == "" {
			add(field+".name", "provider name is required")
		} else if seen[p.Name] {
			add(field+".name", "duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Kind != "openai" && p.Kind != "ollama" {
			add(field+".kind", "kind must be openai or ollama")
		}
		if p.Model == "" {
			add(field+".model", "model is required")
		}
		if p.BaseURL != "" && !isHTTPURL(p.BaseURL) {
			add(field+".base_url", "invalid base URL %q", p.BaseURL)
		}
	}

	// Embedder
	if !isHTTPURL(c.Embedder.BaseURL) {
		add("embedder.base_url", "invalid Ollama base URL")
	}
	if c.Embedder.Model == "" {
		add("embedder.model", "model is required")
	}
	if c.Embedder.Dimensions < 1 {
		add("embedder.dimensions", "dimensions must be positive")
	}
	if c.Embedder.BatchSize < 1 {
		add("embedder.batch_size", "batch_size must be positive")
	}

	// Database
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			add("database.url", "invalid database URL")
		}
	}
	if !tableNamePattern.MatchString(c.Database.TableName) {
		add("database.table_name", "invalid table name %q", c.Database.TableName)
	}

	// Retrieval
	if c.Retrieval.K < 1 {
		add("retrieval.k", "k must be positive")
	}
	if c.Retrieval.HistoryTurns < 1 {
		add("retrieval.history_turns", "history_turns must be positive")
	}
	if c.Retrieval.MinQueryChars < 1 {
		add("retrieval.min_query_chars", "min_query_chars must be positive")
	}

	// Extract
	if c.Extract.MinChars < 1 {
		add("extract.min_chars", "min_chars must be positive")
	}
	if c.Extract.OCRDPI < 72 || c.Extract.OCRDPI > 600 {
		add("extract.ocr_dpi", "ocr_dpi must be between 72 and 600")
	}

	// Scraper
	if c.Scraper.MaxDepth < 1 {
		add("scraper.max_depth", "max_depth must be positive")
	}
	if c.Scraper.MaxPages < 1 {
		add("scraper.max_pages", "max_pages must be positive")
	}
	if c.Scraper.RateLimit <= 0 {
		add("scraper.rate_limit", "rate_limit must be positive")
	}
	for _, ext := range c.Scraper.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			add("scraper.allowed_extensions", "invalid extension format: %s", ext)
		}
	}

	// Processor
	if c.Processor.ChunkSize < 1 {
		add("processor.chunk_size", "chunk_size must be positive")
	}
	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		add("processor.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}

	return errors
}
