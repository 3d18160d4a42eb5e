package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"NotesAI/internal/bootstrap"
	"NotesAI/internal/config"
	"NotesAI/internal/handlers"
	"NotesAI/internal/middleware"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.NewConfig()

	if cfg.Version {
		fmt.Printf("NotesAI daemon\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	// создаём предустановленный регистратор zap
	var logger *zap.Logger
	var err error
	if cfg.LogJSON {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	//context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, done, err := bootstrap.Open(ctx, cfg, sugar, os.Stdin, os.Stderr)
	if err != nil {
		sugar.Fatalw("failed to open storage", "error", err)
	}
	defer func() {
		if err := done(); err != nil {
			sugar.Errorw("failed to close storage", "error", err)
		}
	}()

	h := handlers.NewHandler(app.Notes, app.Gate, sugar, cfg)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Starting server", "addr", cfg.APIAddr)
	sugar.Infow("Config",
		"Backend", cfg.Backend,
		"DBPath", cfg.DBPath,
		"Cipher", cfg.Cipher,
		"Auth", cfg.Auth,
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Errorw("Server failed", "error", err)
	}
	stats := app.Notes.Stats()
	sugar.Infow("Server stopped",
		"orphaned_index_entries", stats.OrphanedIndexEntries,
		"corrupt_entities", stats.CorruptEntities,
	)
}
