// Package scraper crawls medical reference web pages on a single host and
// returns their main text as documents for the passage index.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/wellai/internal/models"
)

const userAgent = "wellai-ingest/1.0"

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	MaxPages          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	OnProgress        func(url string)
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
	logger   *zap.Logger

	visited map[string]bool
	pages   int
}

func NewWithConfig(config ScraperConfig, logger *zap.Logger) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.MaxPages == 0 {
		config.MaxPages = 200
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var baseHost string
	if config.BaseURL != "" {
		parsedURL, err := url.Parse(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		baseHost = parsedURL.Host
	}

	return &Scraper{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: baseHost,
		logger:   logger.Named("scraper"),
	}, nil
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false
	}
	if parsedURL.Host != s.baseHost {
		return false
	}

	if ext := strings.ToLower(path.Ext(parsedURL.Path)); ext != "" {
		allowed := false
		for _, a := range s.config.AllowedExtensions {
			if ext == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}
	return true
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
	"Skip to main content",
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}
	return strings.TrimSpace(content)
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	selectors := []string{
		"main",
		"article",
		"[role=main]",
		".content",
		"#content",
		"#mw-content-text",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}
	return cleanContent(content)
}

// Scrape crawls from startURL, following same-host links up to the configured
// depth and page count. Failures on linked pages are logged and skipped; a
// failure on startURL is returned.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Document, error) {
	if s.baseHost == "" {
		parsed, err := url.Parse(startURL)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", startURL, err)
		}
		s.baseHost = parsed.Host
	}
	s.visited = make(map[string]bool)
	s.pages = 0

	if !s.shouldProcessURL(startURL) {
		return nil, fmt.Errorf("URL %q is outside the crawl scope", startURL)
	}

	var documents []models.Document
	err := s.scrapeRecursive(ctx, startURL, 0, &documents)
	return documents, err
}

func (s *Scraper) scrapeRecursive(ctx context.Context, urlStr string, depth int, documents *[]models.Document) error {
	if depth > s.config.MaxDepth || s.visited[urlStr] || s.pages >= s.config.MaxPages {
		return nil
	}
	if !s.shouldProcessURL(urlStr) {
		return nil
	}

	s.visited[urlStr] = true
	s.pages++
	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	links, document, err := s.fetch(ctx, urlStr, depth)
	if err != nil {
		return err
	}
	if document.Content != "" {
		*documents = append(*documents, document)
	}

	base, err := url.Parse(urlStr)
	if err != nil {
		return nil
	}

	links.EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		href, _ := selection.Attr("href")
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			s.logger.Debug("skipping malformed link", zap.String("href", href), zap.Error(err))
			return true
		}
		abs := base.ResolveReference(link)
		abs.Fragment = ""

		if err := s.scrapeRecursive(ctx, abs.String(), depth+1, documents); err != nil {
			s.logger.Warn("failed to scrape page", zap.String("url", abs.String()), zap.Error(err))
		}
		return true
	})

	return ctx.Err()
}

func (s *Scraper) fetch(ctx context.Context, urlStr string, depth int) (*goquery.Selection, models.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, models.Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, models.Document{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Document{}, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, models.Document{}, fmt.Errorf("parse %s: %w", urlStr, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	// Links are collected before extractMainContent strips navigation.
	links := doc.Find("a[href]")

	s.logger.Debug("fetched page", zap.String("url", urlStr), zap.Int("depth", depth))

	return links, models.Document{
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(urlStr)).String(),
		URL:     urlStr,
		Title:   title,
		Content: extractMainContent(doc),
		Metadata: map[string]interface{}{
			"depth":        depth,
			"fetched_at":   time.Now().UTC().Format(time.RFC3339),
			"contentType":  resp.Header.Get("Content-Type"),
			"lastModified": resp.Header.Get("Last-Modified"),
		},
	}, nil
}
