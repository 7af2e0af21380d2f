package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synqsell/synqsell-backend/api/controllers"
	webhookcontrollers "github.com/synqsell/synqsell-backend/api/controllers/webhooks"
	"github.com/synqsell/synqsell-backend/api/middleware"
	shopifywebhook "github.com/synqsell/synqsell-backend/internal/webhooks/shopify"
	"github.com/synqsell/synqsell-backend/pkg/config"
	"github.com/synqsell/synqsell-backend/pkg/db"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/metrics"
	"github.com/synqsell/synqsell-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	services webhookcontrollers.Services,
	guard *shopifywebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.ShopifyHmac(cfg.Shopify.WebhookSecret, logg))
		r.Post("/shopify", webhookcontrollers.ShopifyWebhook(services, guard, webhookMetrics, logg))
	})

	return r
}
