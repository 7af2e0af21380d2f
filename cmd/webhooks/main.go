package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/synqsell/synqsell-backend/api/controllers/webhooks"
	"github.com/synqsell/synqsell-backend/api/routes"
	"github.com/synqsell/synqsell-backend/internal/catalog"
	"github.com/synqsell/synqsell-backend/internal/fulfillmentsync"
	"github.com/synqsell/synqsell-backend/internal/lifecycle"
	"github.com/synqsell/synqsell-backend/internal/routing"
	"github.com/synqsell/synqsell-backend/internal/sessions"
	"github.com/synqsell/synqsell-backend/internal/settlement"
	shopifywebhook "github.com/synqsell/synqsell-backend/internal/webhooks/shopify"
	"github.com/synqsell/synqsell-backend/pkg/config"
	"github.com/synqsell/synqsell-backend/pkg/db"
	"github.com/synqsell/synqsell-backend/pkg/instance"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/metrics"
	"github.com/synqsell/synqsell-backend/pkg/migrate"
	"github.com/synqsell/synqsell-backend/pkg/redis"
	"github.com/synqsell/synqsell-backend/pkg/shopify"
	"github.com/synqsell/synqsell-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "webhooks"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "webhooks",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	shopifyClient := shopify.NewClient(cfg.Shopify, logg)

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	sessionRepo := sessions.NewRepository(gormDB)

	routingService, err := routing.NewService(routing.NewRepository(gormDB), sessionRepo, shopifyClient, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create routing service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.NewRepository(gormDB), stripeClient, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillmentsync.NewService(
		fulfillmentsync.NewRepository(gormDB),
		sessionRepo,
		shopifyClient,
		settlementService,
		logg,
		cfg.Shopify.TrackingMinEntries,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment sync service", err)
		os.Exit(1)
	}

	lifecycleService, err := lifecycle.NewService(lifecycle.NewRepository(gormDB), sessionRepo, shopifyClient, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(gormDB), sessionRepo, shopifyClient, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	guard, err := shopifywebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.DedupTTL, "shopify")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		webhooks.Services{
			Routing:     routingService,
			Fulfillment: fulfillmentService,
			Lifecycle:   lifecycleService,
			Catalog:     catalogService,
		},
		guard,
		webhookMetrics,
		registry,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting webhook server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "webhook server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
