// Package extract turns an uploaded PDF report into plain text. It reads the
// PDF text layer first and falls back to OCR over rendered page images when the
// document has no usable text layer, as is common for scanned lab reports.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultMinChars is the shortest text accepted as a successful extraction.
const DefaultMinChars = 20

var (
	// ErrNoText is returned when neither the text layer nor OCR produced enough text.
	ErrNoText = errors.New("no extractable text found")

	// ErrNotPDF is returned for input that does not start with a PDF header.
	ErrNotPDF = errors.New("file is not a PDF")
)

var pdfMagic = []byte("%PDF-")

// TextLayer reads the embedded text of each page, in page order.
type TextLayer interface {
	PageTexts(data []byte) ([]string, error)
}

// PageRenderer rasterizes each page of a PDF to an encoded image, in page order.
type PageRenderer interface {
	RenderPages(data []byte) ([][]byte, error)
}

// Recognizer runs optical character recognition on one encoded page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config holds extractor settings.
type Config struct {
	// MinChars is the minimum trimmed length of accepted text. Defaults to 20.
	MinChars int
}

// Extractor runs the text layer / OCR pipeline.
type Extractor struct {
	config     Config
	textLayer  TextLayer
	renderer   PageRenderer
	recognizer Recognizer
	logger     *zap.Logger
}

// New builds an Extractor from its parts. renderer and recognizer may be nil,
// in which case documents without a text layer fail with ErrNoText.
func New(config Config, textLayer TextLayer, renderer PageRenderer, recognizer Recognizer, logger *zap.Logger) *Extractor {
	if config.MinChars <= 0 {
		config.MinChars = DefaultMinChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		config:     config,
		textLayer:  textLayer,
		renderer:   renderer,
		recognizer: recognizer,
		logger:     logger.Named("extract"),
	}
}

// Extract returns the report text. The text layer is used when it yields any
// non-blank text; otherwise every page is rendered and OCRed. The result is
// rejected with ErrNoText when it is shorter than the configured minimum.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrNotPDF
	}

	log := e.logger.With(zap.Int("size_bytes", len(data)))

	text, directErr := e.direct(data)
	if directErr == nil && strings.TrimSpace(text) != "" {
		log.Debug("text layer extracted", zap.Int("chars", len(text)))
		return e.accept(text, nil)
	}

	if directErr != nil {
		log.Warn("direct text extraction failed, trying OCR", zap.Error(directErr))
	} else {
		log.Info("no text layer found, trying OCR")
	}

	text, ocrErr := e.ocr(ctx, data)
	if ocrErr != nil {
		log.Error("OCR failed", zap.Error(ocrErr))
		return "", fmt.Errorf("%w: %w", ErrNoText, multierr.Append(directErr, ocrErr))
	}

	log.Debug("OCR extracted", zap.Int("chars", len(text)))
	return e.accept(text, directErr)
}

func (e *Extractor) accept(text string, cause error) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < e.config.MinChars {
		if cause != nil {
			return "", fmt.Errorf("%w: %w", ErrNoText, cause)
		}
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) direct(data []byte) (string, error) {
	if e.textLayer == nil {
		return "", errors.New("no text layer reader configured")
	}
	pages, err := e.textLayer.PageTexts(data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, ""), nil
}

func (e *Extractor) ocr(ctx context.Context, data []byte) (string, error) {
	if e.renderer == nil || e.recognizer == nil {
		return "", errors.New("OCR is not configured")
	}

	images, err := e.renderer.RenderPages(data)
	if err != nil {
		return "", fmt.Errorf("render pages: %w", err)
	}

	var sb strings.Builder
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := e.recognizer.Recognize(ctx, img)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
