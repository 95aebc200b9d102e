package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transtar/freight-audit/internal/audit"
	"github.com/transtar/freight-audit/internal/config"
	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs/inmemory"
	"github.com/transtar/freight-audit/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("AUDIT_CONFIG"), "Path to the YAML config file (or set AUDIT_CONFIG env)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithLevel(cfg.LogLevel)

	store, err := docstore.New(cfg.UploadDir, cfg.ReportDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up document store")
	}

	// The queue is in-process; a standalone worker keeps the same shape
	// for when the queue moves to an external broker.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.Workers, jobStore)

	runner := audit.NewRunner(store, cfg.ReportBuilder(), cfg.Workers, logger.ForComponent(log, "runner"))

	log.Info().Msg("Starting worker service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := jobQueue.Start(ctx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
