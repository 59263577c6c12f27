package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/search"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceName = "storefront-api"

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Sessions    middleware.SessionResolver
	Search      search.Service
	Catalog     controllers.CatalogTerms
	Products    controllers.ProductLookup
	Rates       controllers.RateResolver
	Callbacks   controllers.PaymentCallbacks
	Idempotency pkgredis.IdempotencyStore
	RateLimiter pkgredis.RateLimiter
	Readiness   []controllers.ReadinessCheck
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.Window,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutSessionLimit,
	)
	notifyPolicy := middleware.NewRateLimitPolicy("notify", cfg.RateLimit.Window, cfg.RateLimit.NotifyIPLimit, 0)

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway calls notify server to server without the session cookie.
		r.With(middleware.RateLimit(notifyPolicy, deps.RateLimiter, logg)).
			Post("/payments/notify", controllers.PaymentNotify(deps.Callbacks))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, deps.Sessions, logg))

			r.Get("/search", controllers.Search(deps.Search, logg))
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
				r.Get("/brands", controllers.CatalogBrands(deps.Catalog, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(logg))
				r.Delete("/", controllers.CartClear(logg))
				r.Post("/items", controllers.CartAddItem(deps.Products, logg))
				r.Put("/items/{productId}", controllers.CartUpdateItem(logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(logg))
			})

			r.Route("/shipping", func(r chi.Router) {
				r.Post("/rates", controllers.ShippingRates(deps.Rates, logg))
				r.Post("/rates/select", controllers.ShippingSelect(logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/status", controllers.CheckoutStatus(logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimit(checkoutPolicy, deps.RateLimiter, logg))
					r.Use(middleware.Idempotency(deps.Idempotency, logg))
					r.Post("/orders", controllers.CheckoutCreateOrder(logg))
					r.Post("/orders/{orderId}/payment", controllers.CheckoutProcessPayment(logg))
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/return", controllers.PaymentReturn(deps.Callbacks))
				r.Get("/cancel", controllers.PaymentCancel(deps.Callbacks))
			})
		})
	})

	return otelhttp.NewHandler(r, serviceName)
}
