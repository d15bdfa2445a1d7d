package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/easton-heights/internal/config"
	"github.com/jwebster45206/easton-heights/internal/handlers"
	"github.com/jwebster45206/easton-heights/internal/logger"
	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Easton Heights API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"data_dir", cfg.DataDir)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// A bad pack is fatal: the catalog is immutable once the server is up.
	cat, err := store.LoadCatalog(storageCtx)
	if err != nil {
		log.Error("Failed to load event catalog", "error", err)
		os.Exit(1)
	}
	if len(cat) == 0 {
		log.Warn("Event catalog is empty; every round will find no eligible event", "data_dir", cfg.DataDir)
	}
	log.Info("Event catalog loaded", "templates", len(cat), "participant_counts", cat.ParticipantCounts())

	eng := session.NewEngine(cfg, log)
	manager := session.NewManager(store, cat, eng, log)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.NewRouter(manager, store, cfg, log),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the autoplay websocket sets its own write deadlines
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
