// Package welcome доставляет приветственные письма новым подписчикам.
// Подписка ставит задание в очередь и не ждёт результата отправки.
package welcome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/market-digest/internal/digest"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
	"github.com/magabrotheeeer/market-digest/internal/services/delivery"
)

// ErrDeliveryFailed возвращается, когда письмо не ушло ни одному адресату.
var ErrDeliveryFailed = errors.New("welcome delivery failed")

// Renderer рендерит приветственное письмо.
type Renderer interface {
	Welcome(data digest.WelcomeData) (models.Content, error)
}

// BatchSender отправляет письма через движок доставки.
type BatchSender interface {
	SendBatch(ctx context.Context, messages []models.Message) delivery.BatchResult
}

// Sender обрабатывает задания очереди.
type Sender struct {
	renderer Renderer
	engine   BatchSender
	log      *slog.Logger
}

// NewSender создает новый экземпляр Sender.
func NewSender(renderer Renderer, engine BatchSender, log *slog.Logger) *Sender {
	return &Sender{renderer: renderer, engine: engine, log: log}
}

// Handle рендерит и отправляет письмо. Письмо проходит через SendBatch,
// поэтому тестовый режим действует и на приветствия.
func (s *Sender) Handle(ctx context.Context, job models.WelcomeJob) error {
	const op = "welcome.Handle"

	content, err := s.renderer.Welcome(digest.WelcomeDataFromJob(job))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result := s.engine.SendBatch(ctx, []models.Message{
		models.NewMessage(job.Email, models.KindWelcome, content),
	})
	if !result.OK() {
		reason := ""
		if len(result.Failures) > 0 {
			reason = result.Failures[0].Error
		}
		return fmt.Errorf("%s: %w: %s", op, ErrDeliveryFailed, reason)
	}

	s.log.Info("welcome message processed",
		sl.Email(job.Email),
		slog.String("subscriber_id", job.SubscriberID),
		slog.String("mode", result.Mode),
	)
	return nil
}

// HandleMessage разбирает тело сообщения из брокера и обрабатывает задание.
func (s *Sender) HandleMessage(ctx context.Context, body []byte) error {
	const op = "welcome.HandleMessage"
	var job models.WelcomeJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal welcome job", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.Handle(ctx, job)
}
