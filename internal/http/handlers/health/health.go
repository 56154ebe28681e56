// Package health реализует проверку доступности сервиса.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/market-digest/internal/http/response"
)

// Handler отвечает 200, пока процесс принимает запросы.
type Handler struct{}

// New создаёт Handler.
func New() *Handler {
	return &Handler{}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"status": "ok",
	}))
}
