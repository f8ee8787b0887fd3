package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/tokoflow-backend/internal/analytics/router"
	analyticstypes "github.com/angelmondragon/tokoflow-backend/internal/analytics/types"
	"github.com/angelmondragon/tokoflow-backend/internal/analytics/worker"
	"github.com/angelmondragon/tokoflow-backend/internal/analytics/writer"
	"github.com/angelmondragon/tokoflow-backend/pkg/bigquery"
	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	"github.com/angelmondragon/tokoflow-backend/pkg/instance"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/registry"
	"github.com/angelmondragon/tokoflow-backend/pkg/pubsub"
	"github.com/angelmondragon/tokoflow-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	factSchema, err := cbigquery.InferSchema(analyticstypes.OrderFact{})
	requireResource(ctx, logg, "order fact schema", err)
	requireResource(ctx, logg, "order events table schema", bqClient.CheckSchema(ctx, factSchema))

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.PubSub.AnalyticsIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	factWriter, err := writer.New(bqClient, writer.Config{Table: bqClient.OrderEventsTable()})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	routingHandler, err := router.NewRouter(factWriter, registry.NewDecoderRegistryFrom(events), logg)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(subscription, routingHandler, manager, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
