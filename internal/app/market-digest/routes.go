// Package marketdigest собирает сервис рассылки: хранилище, доставку,
// очередь приветствий, планировщик и HTTP-маршруты.
package marketdigest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/http/handlers/health"
	"github.com/magabrotheeeer/market-digest/internal/http/handlers/newsletter/digestrun"
	"github.com/magabrotheeeer/market-digest/internal/http/handlers/newsletter/subscribe"
	"github.com/magabrotheeeer/market-digest/internal/http/handlers/newsletter/subscribers"
	"github.com/magabrotheeeer/market-digest/internal/http/handlers/newsletter/unsubscribe"
	"github.com/magabrotheeeer/market-digest/internal/http/middlewarectx"
	subservice "github.com/magabrotheeeer/market-digest/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg config.HTTPServer,
	subscriptionService *subservice.Service,
	runner digestrun.Runner,
	metricsHandler http.Handler,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New().ServeHTTP)

		r.Route("/newsletter", func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst, logger))
			r.Post("/subscribe", subscribe.New(logger, subscriptionService).ServeHTTP)
			r.Post("/unsubscribe", unsubscribe.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscribers", subscribers.New(logger, subscriptionService).ServeHTTP)
			r.Post("/digest/run", digestrun.New(logger, runner).ServeHTTP)
		})
	})

	r.Handle("/metrics", metricsHandler)
}
