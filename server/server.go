// Package server is the web front end: the report analyzer pages, the chatbot
// pages and a websocket chat endpoint, all backed by per-visitor sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/models"
	"github.com/xhad/wellai/pkg/labs"
	"github.com/xhad/wellai/pkg/session"
)

// Extractor turns an uploaded PDF into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Summarizer explains a report in plain language.
type Summarizer interface {
	Summarize(ctx context.Context, reportText string) (models.Summary, error)
}

// Answerer answers a follow-up question about a summarized report.
type Answerer interface {
	Answer(ctx context.Context, question, reportText, summary string) (string, error)
}

// Chatbot answers a medical question given the recent conversation.
type Chatbot interface {
	Respond(ctx context.Context, query string, history []models.ConversationTurn) (string, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr            string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadMB     int
	SessionTTL      time.Duration
	SecureCookies   bool
	AllowedOrigins  []string
	HistoryTurns    int
}

// Deps are the services the handlers call. Ready may be nil.
type Deps struct {
	Sessions   *session.Store
	Extractor  Extractor
	Flagger    *labs.Flagger
	Summarizer Summarizer
	Answerer   Answerer
	Chat       Chatbot
	Ready      HealthChecker
}

type Server struct {
	config   Config
	deps     Deps
	logger   *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader
	now      func() time.Time
}

const (
	formBodyLimit  = 1 << 20
	uploadOverhead = 1 << 20
)

// New builds the router. Missing dependencies are an error so a half-wired
// server never starts.
func New(config Config, deps Deps, logger *zap.Logger) (*Server, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("server: session store is required")
	case deps.Extractor == nil:
		return nil, errors.New("server: extractor is required")
	case deps.Summarizer == nil, deps.Answerer == nil:
		return nil, errors.New("server: summarizer and answerer are required")
	case deps.Chat == nil:
		return nil, errors.New("server: chatbot is required")
	}
	if deps.Flagger == nil {
		deps.Flagger = labs.NewDefaultFlagger()
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = session.DefaultTTL
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger.Named("server"),
		now:    time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	router, err := s.setupRouter()
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

func (s *Server) setupRouter() (*gin.Engine, error) {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	tmpl, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("server: static assets: %w", err)
	}

	router := gin.New()
	router.Use(
		requestLogger(s.logger),
		gin.RecoveryWithWriter(zap.NewStdLog(s.logger).Writer()),
	)
	if len(s.config.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.config.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(static))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.readyz)

	uploadLimit := int64(s.config.MaxUploadMB)<<20 + uploadOverhead

	pages := router.Group("/", s.sessionMiddleware())
	pages.GET("/", s.home)
	pages.GET("/ws", s.handleWebSocket)

	analyzer := pages.Group("/analyzer")
	analyzer.GET("", s.analyzerPage)
	analyzer.POST("/upload", limitBodySize(uploadLimit), s.upload)
	analyzer.POST("/summary", limitBodySize(formBodyLimit), s.summarize)
	analyzer.POST("/ask", limitBodySize(formBodyLimit), s.askReport)
	analyzer.GET("/summary.txt", s.downloadSummary)

	chatbot := pages.Group("/chatbot")
	chatbot.GET("", s.chatbotPage)
	chatbot.POST("/ask", limitBodySize(formBodyLimit), s.askChatbot)
	chatbot.POST("/clear", limitBodySize(formBodyLimit), s.clearChat)
	chatbot.GET("/export", s.exportChat)

	return router, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.config.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) readyz(c *gin.Context) {
	if s.deps.Ready == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
}
