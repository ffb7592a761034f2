package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reportbot/reportbot/internal/api"
	"github.com/reportbot/reportbot/internal/assistant"
	"github.com/reportbot/reportbot/internal/auth"
	"github.com/reportbot/reportbot/internal/config"
	dbpostgres "github.com/reportbot/reportbot/internal/database/postgres"
	"github.com/reportbot/reportbot/internal/nl2sql"
	"github.com/reportbot/reportbot/internal/observability"
	"github.com/reportbot/reportbot/internal/query"
	duckdbengine "github.com/reportbot/reportbot/internal/query/duckdb"
	postgresengine "github.com/reportbot/reportbot/internal/query/postgres"
	"github.com/reportbot/reportbot/internal/sqlguard"
	s3store "github.com/reportbot/reportbot/internal/storage/s3"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file; process environment wins")
	flag.Parse()

	cfg, err := config.LoadFromEnvFile("reportbot-api", *envFile)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	policy, err := sqlguard.PolicyFromSettings(cfg.Policy.Table, cfg.Policy.Columns, cfg.Policy.AllowWildcard)
	if err != nil {
		logger.Error("invalid query policy", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		engine    query.Engine
		readiness []api.ReadinessCheck
	)
	switch cfg.Query.Backend {
	case config.QueryBackendDuckDB:
		objectStore, err := s3store.New(context.Background(), s3store.ConfigFromSettings(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		engine = duckdbengine.NewEngine(objectStore, cfg.Query.SnapshotKey, cfg.Policy.Table, cfg.Query.StatementTimeout)
		readiness = append(readiness, api.CheckSnapshot(objectStore, cfg.Query.SnapshotKey))
	default:
		db, err := dbpostgres.Open(context.Background(), dbpostgres.ConfigFromSettings(cfg.Database))
		if err != nil {
			logger.Error("failed to open reporting db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		engine = postgresengine.NewEngine(db, cfg.Query.StatementTimeout)
		readiness = append(readiness, api.CheckDatabase(db))
	}
	readiness = append(readiness, api.CheckTranslatorConfig(cfg))

	deps := api.Dependencies{
		Logger:            logger,
		Policy:            policy,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: 2 * time.Second,
	}

	if cfg.AI.APIKey != "" {
		translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize query translator", slog.Any("error", err))
			os.Exit(1)
		}
		service, err := assistant.NewService(translator, engine, policy, assistant.Options{
			RowLimit:    cfg.Query.MaxRows,
			PreviewRows: cfg.Query.PreviewRows,
			MaxChars:    cfg.Query.MaxChars,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to initialize assistant", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Assistant = service
	} else {
		logger.Warn("model api key not configured; /v1/ask is disabled")
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(
			"starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("query_backend", cfg.Query.Backend),
			slog.String("table", cfg.Policy.Table),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
