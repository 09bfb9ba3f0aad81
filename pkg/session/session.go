// Package session keeps per-visitor state for the report analyzer and the
// chatbot: the current report, its summary, both conversation histories and a
// one-shot notice.
package session

import (
	"sync"
	"time"

	"github.com/xhad/wellai/internal/models"
)

// Notice levels.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a message shown once on the next page render.
type Notice struct {
	Level string
	Text  string
}

// Session is the state of one visitor. The embedded mutex serializes a
// session's turns; callers hold it around any sequence of reads and writes.
// Accessors never lock on their own.
type Session struct {
	sync.Mutex

	ID        string
	CreatedAt time.Time

	fileID      string
	report      *models.ExtractedReport
	summary     *models.Summary
	reportTurns []models.ConversationTurn
	chatTurns   []models.ConversationTurn
	notice      *Notice
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

// BeginDocument makes fileID the current document. A different file clears the
// report, its summary and the report questions and returns true; the same file
// keeps everything so a re-upload reuses the earlier extraction.
func (s *Session) BeginDocument(fileID string) bool {
	if s.report != nil && s.fileID == fileID {
		return false
	}
	s.fileID = fileID
	s.report = nil
	s.summary = nil
	s.reportTurns = nil
	return true
}

// FileID returns the name of the current document.
func (s *Session) FileID() string {
	return s.fileID
}

// SetReport stores the extracted text of the current document.
func (s *Session) SetReport(report models.ExtractedReport) {
	s.report = &report
}

// Report returns the current report, if any.
func (s *Session) Report() (models.ExtractedReport, bool) {
	if s.report == nil {
		return models.ExtractedReport{}, false
	}
	return *s.report, true
}

// SetSummary caches the summary of the current report.
func (s *Session) SetSummary(summary models.Summary) {
	s.summary = &summary
}

// Summary returns the cached summary, if any.
func (s *Session) Summary() (models.Summary, bool) {
	if s.summary == nil {
		return models.Summary{}, false
	}
	return *s.summary, true
}

// AddReportTurn appends a follow-up question about the report.
func (s *Session) AddReportTurn(turn models.ConversationTurn) {
	s.reportTurns = append(s.reportTurns, turn)
}

// ReportTurns returns a copy of the report questions in order.
func (s *Session) ReportTurns() []models.ConversationTurn {
	return append([]models.ConversationTurn(nil), s.reportTurns...)
}

// AddChatTurn appends a chatbot exchange.
func (s *Session) AddChatTurn(turn models.ConversationTurn) {
	s.chatTurns = append(s.chatTurns, turn)
}

// ChatTurns returns a copy of the chatbot history in order.
func (s *Session) ChatTurns() []models.ConversationTurn {
	return append([]models.ConversationTurn(nil), s.chatTurns...)
}

// RecentChatTurns returns at most the last n chatbot turns.
func (s *Session) RecentChatTurns(n int) []models.ConversationTurn {
	turns := s.chatTurns
	if n >= 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]models.ConversationTurn(nil), turns...)
}

// ClearChat empties the chatbot history. Report state is untouched.
func (s *Session) ClearChat() {
	s.chatTurns = nil
}

// SetNotice replaces the pending notice.
func (s *Session) SetNotice(level, text string) {
	s.notice = &Notice{Level: level, Text: text}
}

// TakeNotice returns and clears the pending notice.
func (s *Session) TakeNotice() (Notice, bool) {
	if s.notice == nil {
		return Notice{}, false
	}
	n := *s.notice
	s.notice = nil
	return n, true
}
