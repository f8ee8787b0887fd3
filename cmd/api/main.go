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

	"github.com/angelmondragon/tokoflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tokoflow-backend/api/routes"
	"github.com/angelmondragon/tokoflow-backend/internal/inventory"
	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/internal/payments"
	"github.com/angelmondragon/tokoflow-backend/internal/shipping"
	midtranswebhook "github.com/angelmondragon/tokoflow-backend/internal/webhooks/midtrans"
	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	"github.com/angelmondragon/tokoflow-backend/pkg/db"
	"github.com/angelmondragon/tokoflow-backend/pkg/env"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/metrics"
	"github.com/angelmondragon/tokoflow-backend/pkg/midtrans"
	"github.com/angelmondragon/tokoflow-backend/pkg/migrate"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
	"github.com/angelmondragon/tokoflow-backend/pkg/rajaongkir"
	"github.com/angelmondragon/tokoflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orderRepo := orders.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())

	orderService, err := orders.NewService(
		orderRepo,
		dbClient,
		outboxService,
		inventory.NewLedger(),
		metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	midtransClient, err := midtrans.NewClient(cfg.Midtrans)
	if err != nil {
		logg.Error(context.Background(), "failed to create midtrans client", err)
		os.Exit(1)
	}
	if !midtransClient.Configured() {
		logg.Warn(context.Background(), "midtrans server key missing; payment initiation will fail")
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:    paymentRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Gateway: midtransClient,
		Metrics: paymentMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookService, err := midtranswebhook.NewService(midtranswebhook.ServiceParams{
		Payments: paymentRepo,
		Orders:   orderRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := midtranswebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	var verifier webhooks.SignatureVerifier
	if cfg.Midtrans.VerifySignature {
		verifier = midtransClient
	}

	shippingService, err := shipping.NewService(
		rajaongkir.NewClient(cfg.Shipping),
		shipping.NewRepository(dbClient.DB()),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"midtrans_env": midtransClient.Environment(),
		"verify_sig":   cfg.Midtrans.VerifySignature,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Idem:     redisClient,
			Limiter:  redisClient,
			Orders:   orderService,
			Payments: paymentService,
			Shipping: shippingService,
			Webhook:  webhookService,
			Guard:    webhookGuard,
			Verifier: verifier,
			Gatherer: prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
