package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"sharewatch/internal/realtime"
	"sharewatch/internal/session"
	"sharewatch/internal/source"
)

// Config holds server configuration, loaded from environment variables.
type Config struct {
	Port       int
	MaxWatches int
	LogLevel   string
}

func loadConfig() Config {
	cfg := Config{
		Port:       8430,
		MaxWatches: 32,
		LogLevel:   "info",
	}

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("MAX_WATCHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxWatches = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg := loadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	// The notification source. Watches created over the API subscribe
	// through it.
	src := source.NewLocal(logger)

	watches := session.NewManager(src, cfg.MaxWatches, logger)
	rtServer := realtime.New(watches, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: rtServer.Handler(),
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		watches.StopAll()
		httpServer.Close()
	}()

	logger.Info("sharewatch server running", "addr", addr, "maxWatches", cfg.MaxWatches)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}
