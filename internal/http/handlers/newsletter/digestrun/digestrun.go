// Package digestrun реализует ручной запуск рассылки дайджеста.
package digestrun

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
)

// Runner запускает прогон рассылки в фоне.
type Runner interface {
	RunAsync()
}

// Handler принимает запрос и сразу отвечает 202: результат прогона
// попадает в логи и метрики.
type Handler struct {
	log    *slog.Logger
	runner Runner
}

// New создаёт Handler.
func New(log *slog.Logger, runner Runner) *Handler {
	return &Handler{
		log:    log,
		runner: runner,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.newsletter.digestrun"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.runner.RunAsync()
	log.Info("digest run requested")

	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"run": "accepted",
	}))
}
