package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/logging"
	cfgPkg "github.com/xhad/wellai/pkg/config"
	"github.com/xhad/wellai/pkg/extract"
	"github.com/xhad/wellai/pkg/llm"
	"github.com/xhad/wellai/pkg/rag"
	"github.com/xhad/wellai/pkg/store"
)

// app holds what every subcommand needs: the loaded config and a logger.
type app struct {
	config *cfgPkg.Config
	logger *zap.Logger
}

func loadApp(cmd *cli.Command) (*app, error) {
	config, err := cfgPkg.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Development: config.Log.Development || cmd.Bool("debug"),
		File:        config.Log.File,
		MaxSizeMB:   config.Log.MaxSizeMB,
		MaxBackups:  config.Log.MaxBackups,
		MaxAgeDays:  config.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{config: config, logger: logger}, nil
}

func validate(config *cfgPkg.Config) error {
	var err error
	for _, e := range config.Validate() {
		err = multierr.Append(err, e)
	}
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// buildProviders creates the provider chain in configured order. Providers
// that need an API key and have none are skipped with a warning.
func buildProviders(config *cfgPkg.Config, logger *zap.Logger) (*llm.Fallback, error) {
	var engines []*llm.ChatEngine
	for _, p := range config.LLM.Providers {
		log := logger.With(
			zap.String("provider", p.Name),
			zap.String("model", p.Model),
			zap.String("api_key", logging.KeyState(p.APIKey)))

		if p.Kind == llm.ProviderOpenAI && p.APIKey == "" {
			log.Warn("skipping provider without API key", zap.String("env", p.APIKeyEnv))
			continue
		}

		engine, err := llm.NewWithConfig(llm.ChatConfig{
			Name:        p.Name,
			Provider:    p.Kind,
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			APIKey:      p.APIKey,
			Temperature: config.LLM.Temperature,
			MaxTokens:   config.LLM.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		log.Info("provider ready")
		engines = append(engines, engine)
	}

	if len(engines) == 0 {
		var envs []string
		for _, p := range config.LLM.Providers {
			if p.APIKeyEnv != "" {
				envs = append(envs, p.APIKeyEnv)
			}
		}
		return nil, fmt.Errorf("no usable model provider: set one of %s", strings.Join(envs, ", "))
	}
	return llm.NewFallback(logger, engines...)
}

func buildExtractor(config *cfgPkg.Config, logger *zap.Logger) *extract.Extractor {
	return extract.New(
		extract.Config{MinChars: config.Extract.MinChars},
		extract.PDFTextLayer{},
		extract.FitzRenderer{DPI: config.Extract.OCRDPI},
		extract.TesseractRecognizer{Languages: strings.Split(config.Extract.OCRLanguage, "+")},
		logger,
	)
}

// openIndex connects the embedder and the passage store. Callers close the store.
func openIndex(ctx context.Context, config *cfgPkg.Config, readOnly bool) (*llm.Embedder, *store.VectorStore, error) {
	if config.Database.URL == "" {
		return nil, nil, errors.New("database url is required (set database.url or DATABASE_URL)")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:      config.Embedder.Model,
		BaseURL:    config.Embedder.BaseURL,
		Dimensions: config.Embedder.Dimensions,
		BatchSize:  config.Embedder.BatchSize,
	})
	if err != nil {
		return nil, nil, err
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  config.Database.URL,
		TableName:   config.Database.TableName,
		VectorDim:   config.Embedder.Dimensions,
		SearchLimit: config.Retrieval.K,
		ReadOnly:    readOnly,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return embedder, vectorStore, nil
}

// buildChat wires the RAG chatbot over a read-only passage index.
func buildChat(ctx context.Context, a *app) (*rag.Chat, *store.VectorStore, *llm.Fallback, error) {
	providers, err := buildProviders(a.config, a.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	embedder, vectorStore, err := openIndex(ctx, a.config, true)
	if err != nil {
		return nil, nil, nil, err
	}

	chat := rag.New(
		rag.NewVectorRetriever(embedder, vectorStore),
		providers,
		rag.Config{
			K:             a.config.Retrieval.K,
			HistoryTurns:  a.config.Retrieval.HistoryTurns,
			MinQueryChars: a.config.Retrieval.MinQueryChars,
		},
		a.logger,
	)
	return chat, vectorStore, providers, nil
}
