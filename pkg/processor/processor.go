// Package processor cleans source documents and splits them into overlapping
// sentence-aligned chunks ready for embedding.
package processor

import (
	"strings"

	"github.com/xhad/wellai/internal/models"
)

type ProcessorConfig struct {
	ChunkSize       int // in characters
	ChunkOverlap    int
	MinChunkLength  int
	Lowercase       bool
	RemoveStopwords bool
	CustomStopwords []string
}

type Processor struct {
	config    ProcessorConfig
	stopwords map[string]struct{}
}

func NewWithConfig(config ProcessorConfig) *Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength <= 0 {
		config.MinChunkLength = 100
	}

	p := &Processor{config: config}
	if config.RemoveStopwords {
		p.stopwords = make(map[string]struct{})
		for _, w := range defaultStopwords {
			p.stopwords[w] = struct{}{}
		}
		for _, w := range config.CustomStopwords {
			p.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
	return p
}

// Process cleans and chunks every document. Documents too short to yield a
// chunk are returned with no chunks.
func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	processed := make([]models.ProcessedDocument, 0, len(docs))
	for _, doc := range docs {
		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   p.splitIntoChunks(p.cleanText(doc.Content)),
		})
	}
	return processed, nil
}

func (p *Processor) cleanText(text string) string {
	if p.config.Lowercase {
		text = strings.ToLower(text)
	}

	// Collapse all whitespace, including the hard line breaks of PDF text.
	words := strings.Fields(text)

	if p.stopwords != nil {
		filtered := words[:0]
		for _, w := range words {
			if _, stop := p.stopwords[strings.ToLower(w)]; !stop {
				filtered = append(filtered, w)
			}
		}
		words = filtered
	}

	return strings.Join(words, " ")
}

func (p *Processor) splitIntoChunks(text string) []string {
	var chunks []string
	var current []rune

	flush := func() {
		if len(current) >= p.config.MinChunkLength {
			chunks = append(chunks, string(current))
		}
		current = overlapTail(current, p.config.ChunkOverlap)
	}

	for _, sentence := range splitIntoSentences(text) {
		for _, piece := range splitLong([]rune(sentence), p.config.ChunkSize) {
			if len(current) > 0 && len(current)+1+len(piece) > p.config.ChunkSize {
				flush()
				if len(current)+1+len(piece) > p.config.ChunkSize {
					current = nil
				}
			}
			if len(current) > 0 {
				current = append(current, ' ')
			}
			current = append(current, piece...)
		}
	}

	if len(current) >= p.config.MinChunkLength {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// splitIntoSentences breaks whitespace-normalized text after '.', '!' or '?'
// followed by a space.
func splitIntoSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				sentences = append(sentences, text[start:i+1])
				start = i + 2
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// splitLong cuts a sentence longer than size at word boundaries. Words longer
// than size are cut mid-word.
func splitLong(s []rune, size int) [][]rune {
	var pieces [][]rune
	for len(s) > size {
		cut := size
		for cut > 0 && s[cut] != ' ' {
			cut--
		}
		if cut == 0 {
			pieces = append(pieces, s[:size])
			s = s[size:]
			continue
		}
		pieces = append(pieces, s[:cut])
		s = s[cut+1:]
	}
	if len(s) > 0 {
		pieces = append(pieces, s)
	}
	return pieces
}

// overlapTail returns roughly the last n runes of chunk, widened to start at a
// word boundary.
func overlapTail(chunk []rune, n int) []rune {
	if n <= 0 || len(chunk) <= n {
		return nil
	}
	start := len(chunk) - n
	for start > 0 && chunk[start-1] != ' ' {
		start--
	}
	if start == 0 {
		return nil
	}
	return append([]rune(nil), chunk[start:]...)
}

var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for",
	"from", "has", "he", "in", "is", "it", "its", "of", "on",
	"that", "the", "to", "was", "were", "will", "with",
}
