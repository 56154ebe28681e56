// Package subscribe реализует HTTP-обработчик подписки на рассылку.
//
// Повторная подписка с тем же адресом обновляет существующую запись,
// поэтому обработчик всегда возвращает сохранённого подписчика.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Handler управляет HTTP-запросами на подписку.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает бизнес-логику подписки.
type Service interface {
	Subscribe(ctx context.Context, req models.SubscribeRequest) (*models.Subscriber, error)
}

// New создаёт Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.newsletter.subscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(apperr.KindValidation, "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error(apperr.KindValidation, err.Error()))
		return
	}

	sub, err := h.service.Subscribe(r.Context(), req)
	if err != nil {
		log.Error("failed to subscribe", sl.Email(req.Email), sl.Err(err))
		status, body := response.FromError(err)
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("subscriber stored", slog.String("id", sub.ID), sl.Email(sub.Email))
	render.JSON(w, r, response.StatusOKWithData(sub))
}
