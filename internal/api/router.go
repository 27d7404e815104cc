package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ec-cart-pricing/internal/api/middleware"
	"github.com/example/ec-cart-pricing/internal/auth"
	"github.com/example/ec-cart-pricing/internal/logger"
)

type RouterConfig struct {
	JWT     *auth.JWTService
	Limiter *middleware.RateLimiter
	// Timeout bounds each request; zero disables it.
	Timeout time.Duration
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	// CatalogState reports the catalog circuit breaker state on /health.
	CatalogState func() string
}

func NewRouter(handlers *Handlers, cfg RouterConfig) http.Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	if cfg.Timeout > 0 {
		r.Use(chimw.Timeout(cfg.Timeout))
	}

	r.Get("/health", healthHandler(cfg.CatalogState))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWT))
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", handlers.GetCart)
			r.Delete("/", handlers.ClearCart)
			r.Post("/summary", handlers.GetSelection)
			r.Post("/refresh", handlers.RefreshCart)
			r.Put("/country", handlers.ChangeCountry)

			r.Post("/items", handlers.AddToCart)
			r.Patch("/items", handlers.UpdateQuantity)
			r.Delete("/items", handlers.RemoveFromCart)
			r.Post("/items/remove", handlers.RemoveItems)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handlers.GetOrders)
			r.Post("/", handlers.PlaceOrder)
			r.Get("/{orderID}", handlers.GetOrder)
		})
	})

	return r
}

// healthHandler always answers 200; an open catalog breaker only marks the
// service as degraded since cart reads still work.
func healthHandler(catalogState func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if catalogState != nil {
			state := catalogState()
			body["catalog"] = state
			if state == "open" {
				body["status"] = "degraded"
			}
		}
		respondJSON(w, http.StatusOK, body)
	}
}
