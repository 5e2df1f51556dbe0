package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aakarsh-hub/pmcopilot/internal/api"
	"github.com/aakarsh-hub/pmcopilot/internal/config"
	"github.com/aakarsh-hub/pmcopilot/internal/copilot"
	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/notify"
	"github.com/aakarsh-hub/pmcopilot/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("pmcopilot starting",
		"port", cfg.Port,
		"db_path", cfg.DBPath,
		"flash_model", cfg.FlashModel,
		"pro_model", cfg.ProModel,
	)

	// Step 1: Open the meeting store.
	db, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("store ready", "path", cfg.DBPath)

	// Step 2: Optionally connect the update publisher.
	if cfg.NatsURL != "" {
		pub, err := notify.New(cfg.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		db.SetPublisher(pub.MeetingUpdated)
		slog.Info("update publisher enabled", "nats_url", cfg.NatsURL)
	}

	// Step 3: Build the gateway and orchestrator.
	gw := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	orc := copilot.New(gw, db, copilot.Config{
		FlashModel:    cfg.FlashModel,
		ProModel:      cfg.ProModel,
		MaxInputBytes: cfg.MaxInputBytes,
	})

	// Step 4: Start the HTTP API.
	srv := api.NewServer(orc, db, cfg.Port)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("pmcopilot ready", "port", cfg.Port)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
