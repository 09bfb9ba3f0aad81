// Package export renders chatbot conversations as a paginated PDF transcript
// and report summaries as plain text downloads.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xhad/wellai/internal/models"
)

// Letter page geometry in points. Y grows upwards from the bottom edge.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
	Margin     = 40.0
)

const (
	Title          = "RAG Medical Chatbot - Conversation History"
	ChatFileName   = "chat_history.pdf"
	SummaryFile    = "summary.txt"
	exportedLayout = "2006-01-02 15:04:05"

	titleAdvance    = 20.0
	dateAdvance     = 30.0
	questionAdvance = 18.0
	answerAdvance   = 16.0
	pairGap         = 14.0
	answerIndent    = 20.0
	pairReserve     = Margin + 100
	lineReserve     = Margin + 50
)

// Font is a core PDF font selection.
type Font struct {
	Family string
	Style  string // "", "B" or "I"
	Size   float64
}

var (
	titleFont    = Font{Family: "Helvetica", Style: "B", Size: 14}
	dateFont     = Font{Family: "Helvetica", Size: 10}
	questionFont = Font{Family: "Helvetica", Style: "B", Size: 11}
	answerFont   = Font{Family: "Helvetica", Size: 11}
	footerFont   = Font{Family: "Helvetica", Style: "I", Size: 8}
)

// Line is one string placed on a page. When AlignRight is set, X is the right edge.
type Line struct {
	X, Y       float64
	Text       string
	Font       Font
	AlignRight bool
}

// Page holds the positioned lines and the page footer.
type Page struct {
	Number int
	Lines  []Line
	Footer Line
}

// Document is a fully laid out transcript.
type Document struct {
	ExportedAt time.Time
	Pages      []Page
}

type layout struct {
	doc  Document
	page *Page
	y    float64
}

func (l *layout) newPage() {
	if l.page != nil {
		l.finishPage()
	}
	l.page = &Page{Number: len(l.doc.Pages) + 1}
	l.y = PageHeight - Margin
}

func (l *layout) finishPage() {
	l.page.Footer = Line{
		X:          PageWidth - Margin,
		Y:          Margin / 2,
		Text:       fmt.Sprintf("Page %d", l.page.Number),
		Font:       footerFont,
		AlignRight: true,
	}
	l.doc.Pages = append(l.doc.Pages, *l.page)
}

func (l *layout) add(x float64, text string, font Font, advance float64) {
	l.page.Lines = append(l.page.Lines, Line{X: x, Y: l.y, Text: text, Font: font})
	l.y -= advance
}

// Layout places the title, export time and every question and answer pair.
// A pair starts on a new page when less than Margin+100 points remain, and an
// answer line when less than Margin+50 remain.
func Layout(history []models.ConversationTurn, exportedAt time.Time) Document {
	l := &layout{doc: Document{ExportedAt: exportedAt}}
	l.newPage()

	l.add(Margin, Title, titleFont, titleAdvance)
	l.add(Margin, "Exported on: "+exportedAt.Format(exportedLayout), dateFont, dateAdvance)

	for i, turn := range history {
		if l.y < pairReserve {
			l.newPage()
		}
		l.add(Margin, fmt.Sprintf("Q%d: %s", i+1, turn.Question), questionFont, questionAdvance)

		for _, line := range strings.Split(turn.Answer, "\n") {
			if l.y < lineReserve {
				l.newPage()
			}
			l.add(Margin+answerIndent, line, answerFont, answerAdvance)
		}
		l.y -= pairGap
	}

	l.finishPage()
	return l.doc
}
