package main

import (
	"context"
	"fmt"
	logByDefault "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openboard/moderation-server/internal/appeal"
	"github.com/openboard/moderation-server/internal/audit"
	config "github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/content"
	"github.com/openboard/moderation-server/internal/enforcement"
	"github.com/openboard/moderation-server/internal/intake"
	"github.com/openboard/moderation-server/internal/ledger"
	log "github.com/openboard/moderation-server/internal/log"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/modstats"
	"github.com/openboard/moderation-server/internal/server"
	storage "github.com/openboard/moderation-server/internal/storage"

	// This controls the maxprocs environment variable in container runtimes.
	// see https://martin.baillie.id/wrote/gotchas-in-the-go-network-packages-defaults/#bonus-gomaxprocs-containers-and-the-cfs
	"go.uber.org/automaxprocs/maxprocs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Set the local timezone to UTC
	time.Local = time.UTC

	// Initialize the configuration
	config, err := config.MustLoadConfig()
	if err != nil {
		logByDefault.Fatalf("Config load error: %v", err)
		os.Exit(1)
	}

	// Logger configuration
	logger := log.New(
		log.WithLevel(config.Verbose),
		log.WithSource(),
	)

	if err := run(config, logger); err != nil {
		logger.ErrorContext(context.Background(), "an error occurred", slog.String("error", err.Error()))
		os.Exit(1)
	}

	os.Exit(0)
}

func run(config *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	_, err := maxprocs.Set(maxprocs.Logger(func(s string, i ...interface{}) {
		logger.DebugContext(ctx, fmt.Sprintf(s, i...))
	}))
	if err != nil {
		return fmt.Errorf("setting max procs: %w", err)
	}

	// Setup hash function
	model.InitHashFunction()

	// Setup database connection
	db, err := storage.New(config, logger)
	if err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}
	defer db.Close()

	// Content collaborator client
	contentClient, err := content.New(&config.Content)
	if err != nil {
		return fmt.Errorf("content client setup error: %w", err)
	}

	// Metrics sink (InfluxDB when enabled, no-op otherwise)
	var mtr metrics.Metrics
	if config.Metrics.Enabled {
		mtr = metrics.NewMetricsImpl(
			config.Metrics.URL,
			config.Metrics.Token,
			config.Metrics.Org,
			config.Metrics.Bucket,
			map[string]string{"environment": config.Environment},
		)
	} else {
		mtr = metrics.NewMetricsFake()
	}
	defer mtr.Close()

	// Assemble the moderation services
	severity := model.DefaultSeverityTable().WithOverrides(config.Moderation.SeverityOverrides)
	services := &server.Services{
		Intake:      intake.New(db, contentClient, severity, mtr, logger),
		Ledger:      ledger.New(db, contentClient, config.Moderation, mtr, logger),
		Enforcement: enforcement.New(db, config.Moderation, mtr, logger),
		Audit:       audit.New(db, config.Moderation),
		Stats:       modstats.New(db, logger),
	}
	services.Appeals = appeal.New(db, services.Enforcement, config.Moderation, mtr, logger)

	// Setup API server
	srv := server.New(config, logger, services)
	srv.AddHealthCheck(func() (bool, map[string]string) {
		status := map[string]string{}
		healthy := true

		ok, detail := db.Status()
		status["database"] = detail
		healthy = healthy && ok

		ok, detail = contentClient.Status()
		status["content"] = detail
		healthy = healthy && ok

		return healthy, status
	})

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.InfoContext(ctx, "Server started", slog.String("host", config.API.Host), slog.Int("port", config.API.Port))

	// Wait for a shutdown signal or a server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.InfoContext(ctx, "Shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}
