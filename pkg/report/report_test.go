package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xhad/wellai/pkg/llm"
)

type fakeAsker struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (f *fakeAsker) Ask(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

const sampleReport = "Complete Blood Count\nHemoglobin 10.0 g/dL\nPlatelet Count 500000 /cumm"

func TestSummarize(t *testing.T) {
	model := &fakeAsker{reply: "  Your hemoglobin is low.  \n"}
	s := NewSummarizer(model, zaptest.NewLogger(t))
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	summary, err := s.Summarize(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.Equal(t, "Your hemoglobin is low.", summary.Text)
	assert.Equal(t, fixed, summary.CreatedAt)

	assert.Equal(t, "You are a medical assistant.", model.system)
	assert.Contains(t, model.prompt, "1. Extract test names and values.")
	assert.Contains(t, model.prompt, "4. Offer general advice based on the report.")
	assert.Contains(t, model.prompt, "Medical Report:\n"+sampleReport+"\n\nSummary:")
}

func TestSummarizeErrorIsNotRetried(t *testing.T) {
	cause := errors.New("503 service unavailable")
	model := &fakeAsker{err: cause}
	s := NewSummarizer(model, zaptest.NewLogger(t))

	_, err := s.Summarize(context.Background(), sampleReport)
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "report: summarize")
	assert.Equal(t, 1, model.calls)
}

func TestSummarizeEmptyResponse(t *testing.T) {
	s := NewSummarizer(&fakeAsker{err: llm.ErrEmptyResponse}, nil)
	_, err := s.Summarize(context.Background(), sampleReport)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestAnswer(t *testing.T) {
	model := &fakeAsker{reply: "A low MCH means smaller amounts of hemoglobin per cell."}
	a := NewAnswerer(model, zaptest.NewLogger(t))

	answer, err := a.Answer(context.Background(), "What does a low MCH mean?", sampleReport, "Hemoglobin is low.")
	require.NoError(t, err)
	assert.Equal(t, "A low MCH means smaller amounts of hemoglobin per cell.", answer)

	assert.Equal(t, "You help users understand medical reports.", model.system)
	assert.Contains(t, model.prompt, "Report:\n"+sampleReport)
	assert.Contains(t, model.prompt, "Summary:\nHemoglobin is low.")
	assert.Contains(t, model.prompt, "The user asks: What does a low MCH mean?")
}

func TestAnswerError(t *testing.T) {
	cause := errors.New("timeout")
	a := NewAnswerer(&fakeAsker{err: cause}, nil)

	_, err := a.Answer(context.Background(), "q", sampleReport, "s")
	assert.ErrorIs(t, err, cause)
}
