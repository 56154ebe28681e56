// Package subscribers реализует HTTP-обработчик выборки подписчиков.
package subscribers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Handler отдаёт подписчиков. По умолчанию возвращаются все записи,
// ?active=true оставляет только активных.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает выборку подписчиков.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]models.Subscriber, error)
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.newsletter.subscribers"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			log.Warn("invalid active parameter", slog.String("active", raw))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(apperr.KindValidation, "active must be a boolean"))
			return
		}
		activeOnly = v
	}

	subs, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		log.Error("failed to list subscribers", sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}
	if subs == nil {
		subs = []models.Subscriber{}
	}

	log.Debug("subscribers listed", slog.Int("count", len(subs)), slog.Bool("active_only", activeOnly))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscribers": subs,
		"count":       len(subs),
	}))
}
