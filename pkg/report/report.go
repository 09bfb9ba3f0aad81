// Package report explains an uploaded medical report in plain language and
// answers follow-up questions about it.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/models"
	"github.com/xhad/wellai/pkg/llm"
)

const (
	summarySystem  = "You are a medical assistant."
	followUpSystem = "You help users understand medical reports."
)

// Asker sends one system message and one user prompt to a chat model.
type Asker interface {
	Ask(ctx context.Context, system, prompt string) (string, error)
}

// Summarizer produces the plain language summary of a report.
type Summarizer struct {
	model  Asker
	logger *zap.Logger
	now    func() time.Time
}

// NewSummarizer returns a Summarizer backed by model.
func NewSummarizer(model Asker, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{model: model, logger: logger.Named("summarizer"), now: time.Now}
}

// Summarize asks the model to extract test values, identify abnormal ones,
// explain them and offer general advice. Model errors are returned wrapped and
// are never retried.
func (s *Summarizer) Summarize(ctx context.Context, reportText string) (models.Summary, error) {
	start := s.now()
	text, err := s.model.Ask(ctx, summarySystem, SummaryPrompt(reportText))
	if err != nil {
		s.logger.Error("summary failed", zap.Error(err))
		return models.Summary{}, fmt.Errorf("report: summarize: %w", err)
	}

	s.logger.Info("summary generated",
		zap.Int("report_chars", len(reportText)),
		zap.Int("summary_chars", len(text)),
		zap.Duration("took", s.now().Sub(start)))

	return models.Summary{Text: strings.TrimSpace(text), CreatedAt: s.now()}, nil
}

// SummaryPrompt builds the instruction sent with the report text.
func SummaryPrompt(reportText string) string {
	return fmt.Sprintf(`
You are a helpful medical assistant. Analyze the medical report text and:
1. Extract test names and values.
2. Identify abnormal values based on healthy ranges.
3. Explain the findings in plain language.
4. Offer general advice based on the report.

Medical Report:
%s

Summary:
`, reportText)
}

// Answerer answers questions about a report and its summary. It keeps no state.
type Answerer struct {
	model  Asker
	logger *zap.Logger
}

// NewAnswerer returns an Answerer backed by model.
func NewAnswerer(model Asker, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{model: model, logger: logger.Named("answerer")}
}

// Answer responds to question using the report text and its summary.
func (a *Answerer) Answer(ctx context.Context, question, reportText, summary string) (string, error) {
	text, err := a.model.Ask(ctx, followUpSystem, FollowUpPrompt(question, reportText, summary))
	if err != nil {
		a.logger.Error("follow-up failed", zap.Error(err))
		return "", fmt.Errorf("report: answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// FollowUpPrompt embeds the report, summary and question.
func FollowUpPrompt(question, reportText, summary string) string {
	return fmt.Sprintf(`
You are a medical assistant. Here is a medical report and its summary:

Report:
%s

Summary:
%s

The user asks: %s

Please respond clearly and accurately in plain language.
`, reportText, summary, question)
}

var _ Asker = (*llm.ChatEngine)(nil)
