package delivery

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// LogTransport пишет письма в лог вместо отправки. Для локальной разработки.
type LogTransport struct {
	log *slog.Logger
}

// NewLogTransport создаёт LogTransport.
func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

// Send логирует письмо и возвращает сгенерированный идентификатор.
func (t *LogTransport) Send(ctx context.Context, msg models.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	t.log.Info("mail sent to log",
		sl.Email(msg.To),
		slog.String("kind", msg.Kind),
		slog.String("subject", msg.Subject),
		slog.String("message_id", id),
	)
	return id, nil
}
