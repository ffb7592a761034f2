package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reportbot/reportbot/internal/config"
	dbpostgres "github.com/reportbot/reportbot/internal/database/postgres"
	"github.com/reportbot/reportbot/internal/export"
	"github.com/reportbot/reportbot/internal/monthly"
	monthlypostgres "github.com/reportbot/reportbot/internal/monthly/postgres"
	"github.com/reportbot/reportbot/internal/notify"
	"github.com/reportbot/reportbot/internal/observability"
	s3store "github.com/reportbot/reportbot/internal/storage/s3"
)

func main() {
	monthFlag := flag.String("month", "", "month to close as YYYY-MM; defaults to REPORTBOT_CLOSE_MONTH or the current month")
	envFile := flag.String("env-file", ".env", "optional dotenv file; process environment wins")
	flag.Parse()

	cfg, err := config.LoadFromEnvFile("reportbot-close", *envFile)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	month := strings.TrimSpace(*monthFlag)
	if month == "" {
		month = cfg.Close.Month
	}
	if month == "" {
		month = monthly.CurrentMonth(time.Now())
	}

	seed := cfg.Close.Seed
	if seed == 0 {
		seed, err = monthly.SeedForMonth(month)
		if err != nil {
			logger.Error("invalid month", slog.String("month", month), slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbpostgres.Open(ctx, dbpostgres.ConfigFromSettings(cfg.Database))
	if err != nil {
		logger.Error("failed to open reporting db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	objectStore, err := s3store.New(ctx, s3store.ConfigFromSettings(cfg.ObjectStore))
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	publisher, err := export.NewPublisher(objectStore, cfg.Close.ExportPrefix, logger)
	if err != nil {
		logger.Error("failed to initialize export publisher", slog.Any("error", err))
		os.Exit(1)
	}

	job, err := monthly.NewJob(
		monthly.NewGenerator(seed, cfg.Close.PropertyCount),
		monthlypostgres.NewRepository(db),
		publisher,
		notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger, nil),
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize monthly close", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting monthly close", slog.String("month", month), slog.Int64("seed", seed))
	if _, err := job.Run(ctx, month); err != nil {
		os.Exit(1)
	}
}
