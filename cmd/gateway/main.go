package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/marketbeam/taskgate/internal/api"
	"github.com/marketbeam/taskgate/internal/budget"
	"github.com/marketbeam/taskgate/internal/compliance"
	"github.com/marketbeam/taskgate/internal/config"
	"github.com/marketbeam/taskgate/internal/delivery"
	"github.com/marketbeam/taskgate/internal/gateway"
	"github.com/marketbeam/taskgate/internal/idempotency"
	"github.com/marketbeam/taskgate/internal/provider"
	"github.com/marketbeam/taskgate/internal/ratelimit"
	"github.com/marketbeam/taskgate/internal/router"
	"github.com/marketbeam/taskgate/internal/server"
	"github.com/marketbeam/taskgate/internal/storage"
	"github.com/marketbeam/taskgate/internal/storage/memory"
	"github.com/marketbeam/taskgate/internal/storage/sqlite"
	"github.com/marketbeam/taskgate/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Provider.APIKey == "" {
		log.Fatal("Provider API key is not configured (provider.api_key or TASKGATE_PROVIDER__API_KEY)")
	}

	shutdownTracer, err := telemetry.InitTracer("taskgate", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	// Rate limit counters: shared Redis when configured, else in-process.
	var counters ratelimit.CounterStore
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		counters = ratelimit.NewRedisStore(client)
		logger.Info("rate limit counters backed by redis", slog.String("addr", cfg.RateLimit.RedisAddr))
	} else {
		counters = ratelimit.NewMemoryStore()
	}

	// Idempotency records: sqlite survives restarts, memory does not.
	var store storage.Store
	switch cfg.Storage.Type {
	case "sqlite":
		s, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		defer s.Close()
		store = s
	default:
		store = memory.New()
	}

	var dispatcher *delivery.Dispatcher
	if len(cfg.Delivery.Webhooks) > 0 {
		channels := make([]delivery.Channel, 0, len(cfg.Delivery.Webhooks))
		for name, url := range cfg.Delivery.Webhooks {
			channels = append(channels, delivery.NewWebhookChannel(name, url))
		}
		ttl := time.Duration(cfg.Delivery.DedupTTLHours) * time.Hour
		dispatcher = delivery.NewDispatcher(idempotency.NewExecutor(store, ttl), logger, channels...)
	}

	providerOpts := []provider.OpenAIOption{}
	if cfg.Provider.BaseURL != "" {
		providerOpts = append(providerOpts, provider.WithBaseURL(cfg.Provider.BaseURL))
	}

	orch := gateway.New(gateway.Params{
		Limiter:          ratelimit.New(counters),
		Ledger:           budget.NewLedger(cfg.Budget.PeriodCapUSD),
		Router:           router.New(catalogFromConfig(cfg.Routing.Models)),
		Generator:        provider.NewOpenAIClient(cfg.Provider.APIKey, providerOpts...),
		Filter:           compliance.New(policiesFromConfig(cfg.Compliance.Policies)),
		Logger:           logger,
		DailyLimit:       cfg.RateLimit.DailyLimit,
		PricePerThousand: cfg.Provider.PricePerThousand,
	})

	srv := server.New(cfg.Server.Port, logger)
	api.NewHandler(orch, dispatcher, logger).Routes(srv.Router)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server failed: %v", err)
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("gateway shutdown complete")
}

func catalogFromConfig(m config.ModelCatalogConfig) router.Catalog {
	return router.Catalog{
		Fast:     m.Fast,
		Balanced: m.Balanced,
		Accurate: m.Accurate,
	}
}

func policiesFromConfig(policies map[string]config.PolicyConfig) map[string]compliance.Policy {
	if len(policies) == 0 {
		return nil
	}
	out := make(map[string]compliance.Policy, len(policies))
	for scope, p := range policies {
		rules := make([]compliance.Rule, 0, len(p.Rules))
		for _, r := range p.Rules {
			rules = append(rules, compliance.Rule{Phrase: r.Phrase, Replacement: r.Replacement})
		}
		out[scope] = compliance.Policy{Rules: rules, Reminders: p.Reminders}
	}
	return out
}
