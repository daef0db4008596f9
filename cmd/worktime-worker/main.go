package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"worktime/internal/amqp"
	"worktime/internal/cli"
	"worktime/internal/core"
	"worktime/internal/sheets"
	"worktime/internal/slack"
	"worktime/internal/store"
	"worktime/internal/worker"
)

// fileSource re-reads the record file on demand so the periodic re-archive
// pass always sees the server's latest save.
type fileSource struct {
	path string
}

func (f fileSource) Records() (map[string]core.DayRecord, error) {
	st, err := store.Open(f.path)
	if err != nil {
		return nil, err
	}
	return st.Records(), nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting worktime-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	arch := cli.InitArchive(logger, cfg.ArchiveDBPath)
	defer arch.Close()

	// Slack notifier is optional
	var notifier worker.Notifier
	if cfg.SlackToken != "" {
		notifier = slack.New(cfg.SlackToken, cfg.SlackChannel)
		logger.Info("Slack notifier initialized", "channel", cfg.SlackChannel)
	} else {
		logger.Info("Slack disabled - no SLACK_TOKEN provided")
	}

	// Google Sheets appender is optional
	var appender worker.ReportAppender
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := sheets.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(arch, notifier, appender, fileSource{path: cfg.DataFile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mirror any records written while the worker was down.
	if err := reportWorker.RearchiveAll(ctx); err != nil {
		logger.Error("Startup re-archive failed", "error", err)
		// Don't exit - continue with normal operation
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.Consume(ctx, reportWorker.Handlers())
	})

	g.Go(func() error {
		reportWorker.RunPeriodicRearchive(ctx, cfg.RearchiveInterval)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
