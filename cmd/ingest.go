package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/models"
	"github.com/xhad/wellai/internal/types"
	"github.com/xhad/wellai/pkg/extract"
	"github.com/xhad/wellai/pkg/processor"
	"github.com/xhad/wellai/pkg/scraper"
)

const storeBatchSize = 20

var cmdIngest = &cli.Command{
	Name:  "ingest",
	Usage: "Build the passage index from PDF books and web pages",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "pdf",
			Usage: "PDF file to index (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "url",
			Usage: "web page to crawl and index (repeatable)",
		},
	},
	Action: ingest,
}

func ingest(ctx context.Context, cmd *cli.Command) error {
	pdfs, urls := cmd.StringSlice("pdf"), cmd.StringSlice("url")
	if len(pdfs) == 0 && len(urls) == 0 {
		return errors.New("nothing to ingest: pass --pdf or --url")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	embedder, vectorStore, err := openIndex(ctx, a.config, false)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	var docs []models.Document

	if len(pdfs) > 0 {
		extractor := buildExtractor(a.config, a.logger)
		for _, path := range pdfs {
			doc, err := loadPDF(ctx, extractor, path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		color.Green("\n✓ Extracted %d PDF documents\n", len(pdfs))
	}

	for _, u := range urls {
		scraped, err := crawl(ctx, a, u)
		if err != nil {
			return err
		}
		docs = append(docs, scraped...)
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       a.config.Processor.ChunkSize,
		ChunkOverlap:    a.config.Processor.ChunkOverlap,
		MinChunkLength:  a.config.Processor.MinChunkLength,
		RemoveStopwords: a.config.Processor.RemoveStopwords,
	})

	processed, err := processAll(proc, docs)
	if err != nil {
		return err
	}

	if err := embedAll(ctx, embedder, processed); err != nil {
		return err
	}

	if err := storeAll(ctx, vectorStore, processed); err != nil {
		return err
	}

	a.logger.Info("ingest complete", zap.Int("documents", len(docs)), zap.Int("stored", len(processed)))
	return nil
}

// loadPDF extracts one book. The document ID is derived from the absolute path
// so re-ingesting the same file updates its passages in place.
func loadPDF(ctx context.Context, extractor *extract.Extractor, path string) (models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.Document{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	spinner := getSpinner(fmt.Sprintf("📄 Extracting %s...", filepath.Base(abs)))
	text, err := extractor.Extract(ctx, data)
	spinner.Finish()
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	source := "file://" + filepath.ToSlash(abs)
	return models.Document{
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String(),
		URL:     source,
		Title:   filepath.Base(abs),
		Content: text,
	}, nil
}

// crawl uses a fresh scraper per start URL since a scraper stays on the host
// it first visits.
func crawl(ctx context.Context, a *app, startURL string) ([]models.Document, error) {
	var scrapedCount int32
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		MaxDepth:          a.config.Scraper.MaxDepth,
		MaxPages:          a.config.Scraper.MaxPages,
		RateLimit:         a.config.Scraper.RateLimit,
		Timeout:           a.config.Scraper.Timeout,
		IgnorePatterns:    a.config.Scraper.IgnorePatterns,
		AllowedExtensions: a.config.Scraper.AllowedExtensions,
		OnProgress: func(string) {
			atomic.AddInt32(&scrapedCount, 1)
		},
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	color.Blue("\nCrawling %s\n", startURL)
	return scrapeWithProgress(ctx, s, &scrapedCount, startURL)
}

func scrapeWithProgress(ctx context.Context, s types.Scraper, scrapedCount *int32, startURL string) ([]models.Document, error) {
	bar := getProgressBar(-1, "🌐 Scraping pages...", "pages")

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Set(int(atomic.LoadInt32(scrapedCount)))
			}
		}
	}()

	docs, err := s.Scrape(ctx, startURL)
	close(done)
	bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", startURL, err)
	}

	color.Green("\n✓ Scraped %d pages\n", len(docs))
	return docs, nil
}

func processAll(proc types.Processor, docs []models.Document) ([]models.ProcessedDocument, error) {
	bar := getProgressBar(len(docs), "🔄 Processing documents...", "docs")
	processed := make([]models.ProcessedDocument, 0, len(docs))
	chunks := 0

	for _, doc := range docs {
		out, err := proc.Process([]models.Document{doc})
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", doc.URL, err)
		}
		for _, p := range out {
			if len(p.Chunks) == 0 {
				continue
			}
			chunks += len(p.Chunks)
			processed = append(processed, p)
		}
		bar.Add(1)
	}

	color.Green("\n✓ Processed into %d chunks\n", chunks)
	return processed, nil
}

func embedAll(ctx context.Context, embedder types.Embedder, processed []models.ProcessedDocument) error {
	total := 0
	for _, p := range processed {
		total += len(p.Chunks)
	}

	bar := getProgressBar(total, "🧠 Embedding chunks...", "chunks")
	for i := range processed {
		vectors, err := embedder.EmbedDocuments(ctx, processed[i].Chunks)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", processed[i].URL, err)
		}
		processed[i].Embedding = vectors
		bar.Add(len(vectors))
	}

	color.Green("\n✓ Embedded %d chunks\n", total)
	return nil
}

func storeAll(ctx context.Context, vectorStore types.VectorStore, processed []models.ProcessedDocument) error {
	bar := getProgressBar(len(processed), "💾 Storing in vector database...", "docs")

	for i := 0; i < len(processed); i += storeBatchSize {
		end := min(i+storeBatchSize, len(processed))
		batch := processed[i:end]

		if err := vectorStore.Store(ctx, batch); err != nil {
			return fmt.Errorf("failed to store batch: %w", err)
		}
		bar.Add(len(batch))
	}

	color.Green("\n✓ Storage complete\n")
	return nil
}
