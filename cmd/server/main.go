// Swath Projector metadata service entry point
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nasa/harmony-swath-projector/internal/api"
	"github.com/nasa/harmony-swath-projector/internal/cmr"
	"github.com/nasa/harmony-swath-projector/internal/config"
	"github.com/nasa/harmony-swath-projector/internal/rules"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("starting swath projector metadata service",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// A rule document that fails to load is fatal: no variable may be
	// evaluated against a partially valid configuration.
	doc, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return fmt.Errorf("failed to load rule document: %w", err)
	}
	logger.Info("loaded rule document",
		"identification", doc.Identification,
		"version", doc.Version,
		"missions", len(doc.MissionPatterns),
		"exclusions", len(doc.Exclusions),
		"overrides", len(doc.Overrides),
	)

	cmrClient := cmr.NewClient(cfg.CMR.BaseURL, cfg.CMR.Timeout).WithLogger(logger)

	handlers := api.NewHandlers(cfg, doc, logger).WithShortNameResolver(cmrClient)
	router := api.NewRouter(handlers, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
