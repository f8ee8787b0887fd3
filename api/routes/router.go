package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tokoflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/tokoflow-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/tokoflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tokoflow-backend/api/middleware"
	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/pkg/config"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
)

type webhookGuard interface {
	CheckAndMark(ctx context.Context, fingerprint string) (bool, error)
	Delete(ctx context.Context, fingerprint string) error
}

// RouterParams carries everything the HTTP surface is wired to.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Idem     middleware.IdempotencyRecordStore
	Limiter  middleware.RateLimiterStore
	Orders   orders.Service
	Payments ordercontrollers.PaymentInitiator
	Shipping controllers.ShippingQuoter
	Webhook  webhookcontrollers.MidtransWebhookService
	Guard    webhookGuard
	// Verifier is nil when notification signatures are not checked.
	Verifier webhookcontrollers.SignatureVerifier
	Gatherer prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	paymentPolicy := middleware.NewRateLimitPolicy("payment", cfg.RateLimit.Window, cfg.RateLimit.PaymentLimit, middleware.ByUser)
	webhookPolicy := middleware.NewRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookLimit, middleware.ByClientIP)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}, logg))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, p.Limiter, logg)).
			Post("/midtrans", webhookcontrollers.MidtransWebhook(p.Webhook, p.Verifier, p.Guard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Idem, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(p.Orders, logg))
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
			r.Post("/{orderId}/shipping-cost", ordercontrollers.UpdateShippingCost(p.Orders, logg))
			r.With(middleware.RateLimit(paymentPolicy, p.Limiter, logg)).
				Post("/{orderId}/payment", ordercontrollers.InitiatePayment(p.Payments, logg))
			r.With(middleware.RequireRole(enums.UserRoleStaff.String(), logg)).
				Patch("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
		})

		r.Post("/shipping/quotes", controllers.ShippingQuotes(p.Shipping, logg))
	})

	return r
}
