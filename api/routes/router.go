package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seoulmarket/marketplace-backend/api/controllers"
	admincontrollers "github.com/seoulmarket/marketplace-backend/api/controllers/admin"
	ordercontrollers "github.com/seoulmarket/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/seoulmarket/marketplace-backend/api/controllers/payments"
	"github.com/seoulmarket/marketplace-backend/api/middleware"
	"github.com/seoulmarket/marketplace-backend/internal/checkout"
	"github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/internal/payments"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer needs.
type redisStore interface {
	controllers.Pinger
	redis.IdempotencyStore
	redis.RateLimiter
}

type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    redisStore
	Gatherer prometheus.Gatherer

	Checkout checkout.Service
	Orders   orders.Service
	Payments payments.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	deps := map[string]controllers.Pinger{"database": p.DB}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var (
		idemStore redis.IdempotencyStore
		limiter   redis.RateLimiter
	)
	if p.Redis != nil {
		idemStore, limiter = p.Redis, p.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, cfg.HTTP.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(p.Checkout, logg))
			r.Post("/from-cart", ordercontrollers.CreateFromCart(p.Checkout, logg))
			r.Post("/direct", ordercontrollers.CreateDirect(p.Checkout, logg))
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Put("/{orderId}/shipping-address", ordercontrollers.UpdateShippingAddress(p.Orders, logg))
			r.Post("/{orderId}/transition", ordercontrollers.Transition(p.Orders, logg))
		})

		r.With(middleware.RequireSeller(logg)).Get("/seller/orders", ordercontrollers.SellerList(p.Orders, logg))

		r.With(middleware.RateLimit("confirm", limiter, cfg.HTTP.ConfirmRateLimit, cfg.HTTP.ConfirmRateWindow, logg)).
			Post("/payments/confirm", paymentcontrollers.Confirm(p.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(idemStore, cfg.HTTP.IdempotencyTTL, logg))

		r.Get("/orders/transitions", admincontrollers.OrderTransitions())
		r.Post("/orders/{orderId}/override", admincontrollers.OrderOverride(p.Orders, logg))
		r.Get("/orders/{orderId}/audit-logs", admincontrollers.OrderAuditLogs(p.Orders, logg))
	})

	return r
}
