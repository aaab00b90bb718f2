package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/notetree/internal/api"
	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/document"
	"github.com/dgallion1/notetree/internal/jobs"
	"github.com/dgallion1/notetree/internal/metrics"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc, err := document.Open(ctx, cfg.DocumentPath, log)
	if err != nil {
		log.Error("failed to open document", "path", cfg.DocumentPath, "error", err)
		os.Exit(1)
	}

	// Initialize job workers.
	orch := jobs.NewOrchestrator(cfg, doc.Search, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(doc, orch, metrics.NewRegistry(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		doc.Close()
	}()

	log.Info("starting notetree", "port", cfg.Port, "document", doc.Path, "format", doc.Format)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
