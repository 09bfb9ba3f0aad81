package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xhad/wellai/internal/models"
)

// Render draws a laid out document as a Letter sized PDF.
func Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(Title, true)
	pdf.SetCreationDate(doc.ExportedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	draw := func(line Line) {
		pdf.SetFont(line.Font.Family, line.Font.Style, line.Font.Size)
		text := tr(line.Text)
		x := line.X
		if line.AlignRight {
			x -= pdf.GetStringWidth(text)
		}
		pdf.Text(x, PageHeight-line.Y, text)
	}

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, line := range page.Lines {
			draw(line)
		}
		draw(page.Footer)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render PDF: %w", err)
	}
	return nil
}

// ChatPDF lays out and renders a conversation transcript.
func ChatPDF(history []models.ConversationTurn, exportedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, Layout(history, exportedAt)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SummaryText returns the downloadable summary body.
func SummaryText(summary models.Summary) []byte {
	return []byte(summary.Text)
}
