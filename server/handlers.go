package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/models"
	"github.com/xhad/wellai/pkg/export"
	"github.com/xhad/wellai/pkg/extract"
	"github.com/xhad/wellai/pkg/labs"
	"github.com/xhad/wellai/pkg/session"
)

const (
	analyzerPath = "/analyzer"
	chatbotPath  = "/chatbot"
)

type analyzerView struct {
	Notice      *session.Notice
	FileName    string
	HasReport   bool
	ReportChars int
	Flags       []string
	Summary     string
	HasSummary  bool
	Turns       []models.ConversationTurn
	MaxUploadMB int
}

type chatbotView struct {
	Notice *session.Notice
	Turns  []models.ConversationTurn
}

func takeNotice(sess *session.Session) *session.Notice {
	if n, ok := sess.TakeNotice(); ok {
		return &n
	}
	return nil
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{})
}

func (s *Server) analyzerPage(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Lock()
	view := analyzerView{
		Notice:      takeNotice(sess),
		FileName:    sess.FileID(),
		Turns:       sess.ReportTurns(),
		MaxUploadMB: s.config.MaxUploadMB,
	}
	if report, ok := sess.Report(); ok {
		view.HasReport = true
		view.ReportChars = utf8.RuneCountInString(report.RawText)
		view.Flags = labs.Messages(s.deps.Flagger.Flag(report.RawText))
	}
	if summary, ok := sess.Summary(); ok {
		view.HasSummary = true
		view.Summary = summary.Text
	}
	sess.Unlock()

	c.HTML(http.StatusOK, "analyzer.html", view)
}

func (s *Server) upload(c *gin.Context) {
	sess := sessionFrom(c)
	defer c.Redirect(http.StatusSeeOther, analyzerPath)

	file, err := c.FormFile("report")
	if err != nil {
		msg := "Please choose a PDF file to upload."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("The file is larger than %d MB.", s.config.MaxUploadMB)
		}
		s.notify(sess, session.NoticeError, msg)
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		s.notify(sess, session.NoticeError, "Please upload a PDF file.")
		return
	}

	data, err := readUpload(file)
	if err != nil {
		s.logger.Warn("failed to read upload", zap.String("file", file.Filename), zap.Error(err))
		s.notify(sess, session.NoticeError, "The upload could not be read. Please try again.")
		return
	}

	sess.Lock()
	defer sess.Unlock()

	if !sess.BeginDocument(file.Filename) {
		sess.SetNotice(session.NoticeInfo, fmt.Sprintf("%s is already loaded.", file.Filename))
		return
	}

	text, err := s.deps.Extractor.Extract(c.Request.Context(), data)
	if err != nil {
		s.logger.Info("extraction failed", zap.String("file", file.Filename), zap.Error(err))
		if errors.Is(err, extract.ErrNotPDF) {
			sess.SetNotice(session.NoticeError, "That file is not a valid PDF.")
		} else {
			sess.SetNotice(session.NoticeError, "No extractable text found. Try another file.")
		}
		return
	}

	sess.SetReport(models.ExtractedReport{
		RawText:      text,
		SourceFileID: file.Filename,
		ExtractedAt:  s.now(),
	})
	sess.SetNotice(session.NoticeSuccess, fmt.Sprintf("Loaded %s.", file.Filename))
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) summarize(c *gin.Context) {
	sess := sessionFrom(c)
	defer c.Redirect(http.StatusSeeOther, analyzerPath)

	sess.Lock()
	defer sess.Unlock()

	report, ok := sess.Report()
	if !ok {
		sess.SetNotice(session.NoticeError, "Upload a report first.")
		return
	}

	summary, err := s.deps.Summarizer.Summarize(c.Request.Context(), report.RawText)
	if err != nil {
		s.logger.Error("summary failed", zap.Error(err))
		sess.SetNotice(session.NoticeError, fmt.Sprintf("Could not generate a summary: %v", err))
		return
	}

	sess.SetSummary(summary)
	sess.SetNotice(session.NoticeSuccess, "Summary Complete")
}

func (s *Server) askReport(c *gin.Context) {
	sess := sessionFrom(c)
	defer c.Redirect(http.StatusSeeOther, analyzerPath)

	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	report, hasReport := sess.Report()
	summary, hasSummary := sess.Summary()
	if !hasReport || !hasSummary {
		sess.SetNotice(session.NoticeError, "Analyze the report before asking questions.")
		return
	}

	answer, err := s.deps.Answerer.Answer(c.Request.Context(), question, report.RawText, summary.Text)
	if err != nil {
		s.logger.Error("follow-up failed", zap.Error(err))
		sess.SetNotice(session.NoticeError, fmt.Sprintf("Could not answer the question: %v", err))
		return
	}
	sess.AddReportTurn(models.ConversationTurn{Question: question, Answer: answer})
}

func (s *Server) downloadSummary(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Lock()
	summary, ok := sess.Summary()
	sess.Unlock()

	if !ok {
		c.String(http.StatusNotFound, "no summary available")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SummaryFile))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", export.SummaryText(summary))
}

func (s *Server) chatbotPage(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Lock()
	view := chatbotView{
		Notice: takeNotice(sess),
		Turns:  sess.ChatTurns(),
	}
	sess.Unlock()

	c.HTML(http.StatusOK, "chatbot.html", view)
}

func (s *Server) askChatbot(c *gin.Context) {
	sess := sessionFrom(c)
	defer c.Redirect(http.StatusSeeOther, chatbotPath)

	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	if _, err := s.respond(c, sess, question); err != nil {
		sess.SetNotice(session.NoticeError, fmt.Sprintf("Could not search the medical library: %v", err))
	}
}

// respond runs one chatbot turn and records it. The caller holds the session lock.
func (s *Server) respond(c *gin.Context, sess *session.Session, question string) (models.ConversationTurn, error) {
	history := sess.RecentChatTurns(s.config.HistoryTurns)
	answer, err := s.deps.Chat.Respond(c.Request.Context(), question, history)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		return models.ConversationTurn{}, err
	}
	turn := models.ConversationTurn{Question: question, Answer: answer}
	sess.AddChatTurn(turn)
	return turn, nil
}

func (s *Server) clearChat(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Lock()
	sess.ClearChat()
	sess.SetNotice(session.NoticeSuccess, "History cleared!")
	sess.Unlock()
	c.Redirect(http.StatusSeeOther, chatbotPath)
}

func (s *Server) exportChat(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Lock()
	turns := sess.ChatTurns()
	sess.Unlock()

	if len(turns) == 0 {
		c.String(http.StatusNotFound, "no conversation to export")
		return
	}

	data, err := export.ChatPDF(turns, s.now())
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not export the conversation")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ChatFileName))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) notify(sess *session.Session, level, text string) {
	sess.Lock()
	sess.SetNotice(level, text)
	sess.Unlock()
}
