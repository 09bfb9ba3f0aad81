package models

import "time"

// ExtractedReport is the plain text pulled out of one uploaded report.
type ExtractedReport struct {
	RawText      string
	SourceFileID string
	ExtractedAt  time.Time
}

// Summary is the model-written plain language explanation of a report.
type Summary struct {
	Text      string
	CreatedAt time.Time
}

// ConversationTurn is one question and the answer given to it.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
