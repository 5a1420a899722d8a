package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-storefront-bot/internal/config"
	"github.com/go-storefront-bot/internal/transport/http/handler"
	appmiddleware "github.com/go-storefront-bot/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	webhookRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.WebhookRateLimit), cfg.WebhookRateBurst)

	healthH := handler.NewHealthHandler(deps.Checks)
	catalogH := handler.NewCatalogHandler(deps.Catalog)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/services", catalogH.List)

		if deps.Updates != nil {
			webhookH := handler.NewWebhookHandler(cfg.WebhookSecret, deps.Updates)
			r.With(webhookRL.Limit).Post("/telegram/webhook/{secret}", webhookH.Receive)
		}
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	return r
}
