package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/transtar/freight-audit/internal/api/handlers"
	"github.com/transtar/freight-audit/internal/api/middleware"
	"github.com/transtar/freight-audit/internal/audit"
	"github.com/transtar/freight-audit/internal/config"
	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs/inmemory"
	"github.com/transtar/freight-audit/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("AUDIT_CONFIG"), "Path to the YAML config file (or set AUDIT_CONFIG env)")
		listenAddr = flag.String("listen", "", "HTTP listen address, overrides the config file")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithLevel(cfg.LogLevel)
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	store, err := docstore.New(cfg.UploadDir, cfg.ReportDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up document store")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.Workers, jobStore)

	runner := audit.NewRunner(store, cfg.ReportBuilder(), cfg.Workers, logger.ForComponent(log, "runner"))

	// Start consuming jobs in the background
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Initialize handlers
	auditsHandler := handlers.NewAuditsHandler(store, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	reportsHandler := handlers.NewReportsHandler(store, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/audits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			auditsHandler.CreateAudit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.ListReports(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			name := strings.TrimPrefix(r.URL.Path, "/api/reports/")
			if name == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Report name is required")
				return
			}
			reportsHandler.GetReport(w, r, name)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
