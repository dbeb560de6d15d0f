package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docmark/internal/api"
	"github.com/dgallion1/docmark/internal/audit"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/docstore"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/dgallion1/docmark/internal/score"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the scoring client.
	stats := score.NewLLMStats(time.Hour)
	scorer, err := score.New(ctx, cfg.Scorer, stats)
	if err != nil {
		log.Error("failed to create scorer", "provider", cfg.Scorer.Provider, "error", err)
		os.Exit(1)
	}

	// Initialize run coordinator.
	coord := pipeline.NewCoordinator(cfg, scorer, scorer.Provider(), audit.NewWriter(cfg.AuditDir), log)
	coord.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(docstore.New(), coord, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		shutdown(log, coord, httpServer, scorer)
	}()

	log.Info("starting docmark", "port", cfg.Port, "provider", scorer.Provider(), "audit", cfg.AuditDir != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}

type stopper interface{ Stop() }

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown stops the coordinator first so in-flight runs record their final
// state and audit files, then drains HTTP and closes the scorer.
func shutdown(log *slog.Logger, coord stopper, srv shutdowner, closers ...io.Closer) {
	coord.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn("close", "error", err)
		}
	}
}
