// Shrike - Invoice validation and reliability scoring.
// Copyright (c) 2026 invoicecore
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/invoicecore/shrike/internal/api"
	"github.com/invoicecore/shrike/internal/bus"
	"github.com/invoicecore/shrike/internal/cache"
	"github.com/invoicecore/shrike/internal/catalog"
	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/duplicate"
	"github.com/invoicecore/shrike/internal/engine"
	"github.com/invoicecore/shrike/internal/frequency"
	"github.com/invoicecore/shrike/internal/repository"
	"github.com/invoicecore/shrike/internal/rules"
	"github.com/invoicecore/shrike/internal/scoring"
	"github.com/invoicecore/shrike/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHRIKE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SHRIKE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Seed and load the rule catalogue
	cat := catalog.New()
	if err := initCatalog(ctx, repo, cat); err != nil {
		slog.Error("failed to initialize rule catalogue", "error", err)
		os.Exit(1)
	}
	slog.Info("rule catalogue loaded", "rules_count", cat.Count())

	// Initialize rule Evaluator and compile expression rules
	evaluator, err := rules.NewEvaluator(cfg.Engine)
	if err != nil {
		slog.Error("failed to initialize rule evaluator", "error", err)
		os.Exit(1)
	}
	if err := evaluator.Reload(cat.All()); err != nil {
		slog.Error("failed to compile rule catalogue", "error", err)
		os.Exit(1)
	}

	// Assemble the validation engine
	comparator := compare.New(cfg.Engine.AmountTolerance)
	detector := duplicate.NewDetector(repo)
	scorer := scoring.NewAggregator(cfg.Scoring)
	tracker := frequency.NewTracker(repo, cacheImpl)
	eng := engine.New(cat, comparator, detector, evaluator, scorer, tracker, cfg.Engine, logger)
	slog.Info("validation engine initialized", "engine_version", scoring.EngineVersion)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("SHRIKE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, eng, cacheImpl)

		var tenantIDs []string
		if envTenants := os.Getenv("SHRIKE_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, cat, evaluator, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shrike is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shrike shutdown complete")
}

// initCatalog seeds the built-in catalogue on first start and loads the
// persisted catalogue into memory. An existing catalogue is never
// overwritten; changes go through the rules API.
func initCatalog(ctx context.Context, repo domain.Repository, cat *catalog.Catalog) error {
	persisted, err := repo.ListRules(ctx, api.GlobalTenantID)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	if len(persisted) == 0 {
		seed := catalog.Seed()
		slog.Info("seeding built-in rule catalogue", "count", len(seed))
		for _, rule := range seed {
			rule.TenantID = api.GlobalTenantID
			if err := repo.SaveRule(ctx, api.GlobalTenantID, rule); err != nil {
				return fmt.Errorf("failed to seed rule %s: %w", rule.RuleID, err)
			}
		}
	}

	return cat.LoadFromRepository(ctx, repo, api.GlobalTenantID)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  SHRIKE - Invoice Validation Engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /validate           - Validate an invoice")
	fmt.Println("    GET  /runs/{id}          - Get validation run by ID")
	fmt.Println("    GET  /invoices/{id}      - Get invoice by ID")
	fmt.Println("    GET  /invoices/{id}/runs - Validation history for an invoice")
	fmt.Println("    GET  /rules              - List the rule catalogue")
	fmt.Println("    POST /rules              - Create a new rule")
	fmt.Println("    POST /rules/reload       - Hot-reload rules from database")
	fmt.Println("    GET  /health             - Health check")
	fmt.Println()
}
