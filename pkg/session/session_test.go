package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/wellai/internal/models"
)

func loaded(t *testing.T) *Session {
	t.Helper()
	s := newSession("s1", time.Now())
	require.True(t, s.BeginDocument("cbc.pdf"))
	s.SetReport(models.ExtractedReport{RawText: "Hemoglobin 10.0", SourceFileID: "cbc.pdf"})
	s.SetSummary(models.Summary{Text: "low hemoglobin"})
	s.AddReportTurn(models.ConversationTurn{Question: "q", Answer: "a"})
	s.AddChatTurn(models.ConversationTurn{Question: "what is anemia", Answer: "..."})
	return s
}

func TestBeginDocumentNewFileResetsReportState(t *testing.T) {
	s := loaded(t)

	assert.True(t, s.BeginDocument("lipids.pdf"))
	assert.Equal(t, "lipids.pdf", s.FileID())
	_, ok := s.Report()
	assert.False(t, ok)
	_, ok = s.Summary()
	assert.False(t, ok)
	assert.Empty(t, s.ReportTurns())
	assert.Len(t, s.ChatTurns(), 1, "chatbot history is independent of the report")
}

func TestBeginDocumentSameFileKeepsState(t *testing.T) {
	s := loaded(t)

	assert.False(t, s.BeginDocument("cbc.pdf"))
	report, ok := s.Report()
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin 10.0", report.RawText)
	summary, ok := s.Summary()
	require.True(t, ok)
	assert.Equal(t, "low hemoglobin", summary.Text)
	assert.Len(t, s.ReportTurns(), 1)
}

func TestBeginDocumentSameFileAfterFailedExtraction(t *testing.T) {
	s := newSession("s1", time.Now())
	assert.True(t, s.BeginDocument("scan.pdf"))
	// No report was stored, so a retry must extract again.
	assert.True(t, s.BeginDocument("scan.pdf"))
}

func TestClearChatKeepsReport(t *testing.T) {
	s := loaded(t)
	s.ClearChat()

	assert.Empty(t, s.ChatTurns())
	_, ok := s.Report()
	assert.True(t, ok)
	_, ok = s.Summary()
	assert.True(t, ok)
	assert.Len(t, s.ReportTurns(), 1)
}

func TestRecentChatTurns(t *testing.T) {
	s := newSession("s1", time.Now())
	for i := 1; i <= 7; i++ {
		s.AddChatTurn(models.ConversationTurn{Question: fmt.Sprintf("q%d", i)})
	}

	recent := s.RecentChatTurns(5)
	require.Len(t, recent, 5)
	assert.Equal(t, "q3", recent[0].Question)
	assert.Equal(t, "q7", recent[4].Question)
	assert.Len(t, s.RecentChatTurns(10), 7)

	recent[0].Question = "changed"
	assert.Equal(t, "q3", s.ChatTurns()[2].Question)
}

func TestNoticeIsOneShot(t *testing.T) {
	s := newSession("s1", time.Now())
	_, ok := s.TakeNotice()
	assert.False(t, ok)

	s.SetNotice(NoticeError, "No extractable text found. Try another file.")
	n, ok := s.TakeNotice()
	require.True(t, ok)
	assert.Equal(t, Notice{Level: NoticeError, Text: "No extractable text found. Try another file."}, n)

	_, ok = s.TakeNotice()
	assert.False(t, ok)
}

func TestSessionLockSerializesTurns(t *testing.T) {
	s := newSession("s1", time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Lock()
			defer s.Unlock()
			s.AddChatTurn(models.ConversationTurn{Question: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.ChatTurns(), 50)
}
