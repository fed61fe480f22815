package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amitphadol/Babylon-login-app/internal/app"
	"github.com/Amitphadol/Babylon-login-app/internal/config"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_ = logger.Init("info", "json")
		logger.Fatal("invalid configuration", map[string]any{
			"error": err,
		})
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err,
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err,
			})
		}
	}()

	logger.Info("babylon-login-app started", map[string]any{
		"port":    cfg.AppPort,
		"backend": cfg.AuthBackend,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err,
		})
	}

	logger.Info("babylon-login-app stopped cleanly", nil)
}
