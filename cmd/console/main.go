package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/triage-console/internal/api"
	"github.com/triage-console/internal/config"
	"github.com/triage-console/internal/logging"
	"github.com/triage-console/internal/session"
	"github.com/triage-console/pkg/inference"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging)

	client := inference.NewClient(inference.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
	}, logger)

	var gateway inference.Gateway = client
	if cfg.Backend.BreakerEnabled || cfg.Backend.CacheEnabled {
		gateway = inference.NewResilientClient(client, inference.ResilientConfig{
			BreakerEnabled: cfg.Backend.BreakerEnabled,
			CacheEnabled:   cfg.Backend.CacheEnabled,
			CacheSize:      cfg.Backend.CacheSize,
			CacheTTL:       cfg.Backend.CacheTTL,
		}, logger)
	}

	sess := session.NewService(gateway, logger,
		session.WithProbeInterval(cfg.Session.ProbeInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Startup health probe runs in the background; the session reports
	// Checking until it resolves.
	sess.Start(ctx)
	defer sess.Stop()

	server := api.NewServer(cfg, sess, logger)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("console stopped")
}
