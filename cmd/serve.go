package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/xhad/wellai/pkg/labs"
	"github.com/xhad/wellai/pkg/report"
	"github.com/xhad/wellai/pkg/session"
	"github.com/xhad/wellai/server"
)

const sessionCleanupInterval = 10 * time.Minute

var cmdServe = &cli.Command{
	Name:    "serve",
	Aliases: []string{"run"},
	Usage:   "Start the web server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address, overrides server.addr",
		},
	},
	Action: serve,
}

func serve(ctx context.Context, cmd *cli.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	if cmd.IsSet("addr") {
		a.config.Server.Addr = cmd.String("addr")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat, vectorStore, providers, err := buildChat(ctx, a)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	// The report flow talks to the first usable provider only.
	primary := providers.Primary()
	a.logger.Info("model providers",
		zap.Strings("chain", providers.Names()),
		zap.String("report_provider", primary.Name()))

	sessions := session.NewStore(a.config.Server.SessionTTL)
	sessions.StartCleanup(ctx, sessionCleanupInterval)

	srv, err := server.New(server.Config{
		Addr:            a.config.Server.Addr,
		Mode:            a.config.Server.Mode,
		ReadTimeout:     a.config.Server.ReadTimeout,
		WriteTimeout:    a.config.Server.WriteTimeout,
		ShutdownTimeout: a.config.Server.ShutdownTimeout,
		MaxUploadMB:     a.config.Server.MaxUploadMB,
		SessionTTL:      a.config.Server.SessionTTL,
		SecureCookies:   a.config.Server.SecureCookies,
		AllowedOrigins:  a.config.Server.AllowedOrigins,
		HistoryTurns:    a.config.Retrieval.HistoryTurns,
	}, server.Deps{
		Sessions:   sessions,
		Extractor:  buildExtractor(a.config, a.logger),
		Flagger:    labs.NewDefaultFlagger(),
		Summarizer: report.NewSummarizer(primary, a.logger),
		Answerer:   report.NewAnswerer(primary, a.logger),
		Chat:       chat,
		Ready:      vectorStore,
	}, a.logger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
