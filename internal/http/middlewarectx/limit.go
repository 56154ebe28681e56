// Package middlewarectx содержит HTTP middleware сервиса.
package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
)

// RateLimitMiddleware ограничивает общую частоту запросов: perSecond в
// секунду с запасом burst. Неположительный perSecond отключает ограничение.
func RateLimitMiddleware(perSecond float64, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("rate_limited", "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
