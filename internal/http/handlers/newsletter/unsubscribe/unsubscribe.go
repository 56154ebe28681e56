// Package unsubscribe реализует HTTP-обработчик отписки.
// Отписка только помечает подписчика неактивным, запись сохраняется.
package unsubscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Handler управляет HTTP-запросами на отписку.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает бизнес-логику отписки.
type Service interface {
	Unsubscribe(ctx context.Context, email string) error
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.newsletter.unsubscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(apperr.KindValidation, "invalid request body"))
		return
	}

	// Пустой адрес проверяет сервис, чтобы ответ совпадал при любом транспорте.
	if err := h.service.Unsubscribe(r.Context(), req.Email); err != nil {
		log.Warn("failed to unsubscribe", sl.Email(req.Email), sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("subscriber deactivated", sl.Email(req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"email": req.Email,
	}))
}
