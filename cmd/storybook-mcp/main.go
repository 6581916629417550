package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/storybook/internal/app"
	"github.com/apresai/storybook/internal/config"
	"github.com/apresai/storybook/internal/mcpserver"
	"github.com/apresai/storybook/internal/observability"
)

var version = "dev"

func main() {
	logger := observability.InitLogger(observability.LogOptions{JSON: true})

	logger.Info("Storybook MCP Server starting...", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("STORYBOOK_CONFIG"))
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if observability.TracingEnabled() {
		tp, err := observability.InitTracer(ctx, "storybook-mcp", version, cfg.Server.Environment)
		if err != nil {
			logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Error("Tracer shutdown error", "error", err)
				}
			}()
		}
	}

	if cfg.SecretPrefix != "" {
		awsCfg, err := app.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			logger.Error("Failed to load AWS config", "error", err)
			os.Exit(1)
		}
		n := config.LoadSecrets(ctx, awsCfg, cfg.SecretPrefix, logger)
		logger.Info("Secrets loaded", "count", n)
		cfg.LoadEnv()
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to resolve providers", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := mcpserver.New(ctx, a, mcpserver.Config{
		Port:    cfg.Server.Port,
		Version: version,
		Checkout: mcpserver.CheckoutConfig{
			BaseURL: cfg.Checkout.BaseURL,
			Links:   cfg.Checkout.Links,
		},
	}, logger)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, cancelling active runs...")
		// Runs share ctx; give them a moment to log their failure.
		time.Sleep(3 * time.Second)
		logger.Info("Shutdown complete")
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
