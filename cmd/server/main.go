package main

import (
	"log/slog"
	"os"

	"go-video-hub/internal/app"
	"go-video-hub/internal/config"
	"go-video-hub/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", "video-hub"))
	slog.Info("starting video hub",
		"env", cfg.Environment,
		"port", cfg.ServerPort,
		"password_scheme", cfg.PasswordScheme,
		"redis", cfg.RedisAddr != "",
		"metrics", cfg.MetricsEnabled,
	)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
