// Package subscription содержит бизнес-логику подписки на рассылку:
// идемпотентную подписку, мягкую отписку и выборку подписчиков.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
	"github.com/magabrotheeeer/market-digest/internal/storage"
)

// События подписки для метрик.
const (
	EventCreated      = "created"
	EventUpdated      = "updated"
	EventUnsubscribed = "unsubscribed"
)

// WelcomeQueue принимает задания на приветственное письмо.
type WelcomeQueue interface {
	Enqueue(ctx context.Context, job models.WelcomeJob) error
}

// Recorder принимает метрики подписок.
type Recorder interface {
	RecordSubscription(event string)
}

// Service реализует подписку поверх хранилища, работающего с коллекцией
// целиком. Последовательности чтение-изменение-запись сериализуются
// мьютексом в пределах процесса.
type Service struct {
	store    storage.SubscriberStore
	queue    WelcomeQueue
	metrics  Recorder
	validate *validator.Validate
	log      *slog.Logger

	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// New создает новый экземпляр Service. queue и metrics могут быть nil.
func New(store storage.SubscriberStore, queue WelcomeQueue, metrics Recorder, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		metrics:  metrics,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Subscribe создаёт подписчика или обновляет существующего с тем же адресом.
//
// Обновление перезаписывает имя, темы, источники и частоту, сохраняя
// идентификатор, дату создания и признак активности. Приветственное письмо
// ставится в очередь только для нового подписчика и только после успешного
// сохранения; ошибка постановки в очередь не возвращается вызывающему.
func (s *Service) Subscribe(ctx context.Context, req models.SubscribeRequest) (*models.Subscriber, error) {
	const op = "subscription.Subscribe"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, apperr.ErrValidation, err.Error())
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = models.FrequencyDaily
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	var result models.Subscriber
	idx := slices.IndexFunc(subs, func(sub models.Subscriber) bool { return sub.Email == req.Email })
	created := idx < 0

	if created {
		result = models.Subscriber{
			ID:        s.newID(),
			Email:     req.Email,
			Name:      req.Name,
			Topics:    models.NormalizeTags(req.Topics),
			Sources:   models.NormalizeTags(req.Sources),
			Frequency: frequency,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		subs = append(subs, result)
	} else {
		sub := &subs[idx]
		sub.Name = req.Name
		sub.Topics = models.NormalizeTags(req.Topics)
		sub.Sources = models.NormalizeTags(req.Sources)
		sub.Frequency = frequency
		sub.UpdatedAt = now
		result = *sub
	}

	if err := s.store.Save(ctx, subs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if created {
		s.log.Info("subscriber created", slog.String("id", result.ID), sl.Email(result.Email))
		s.record(EventCreated)
		s.enqueueWelcome(ctx, result)
	} else {
		s.log.Info("subscriber updated", slog.String("id", result.ID), sl.Email(result.Email))
		s.record(EventUpdated)
	}
	return &result, nil
}

// enqueueWelcome ставит задание в очередь в контексте, не зависящем от
// отмены запроса.
func (s *Service) enqueueWelcome(ctx context.Context, sub models.Subscriber) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(context.WithoutCancel(ctx), models.NewWelcomeJob(sub)); err != nil {
		s.log.Error("failed to enqueue welcome message", slog.String("id", sub.ID), sl.Err(err))
	}
}

// Unsubscribe снимает признак активности. Запись не удаляется.
// Для неизвестного адреса возвращает apperr.ErrNotFound, ничего не записывая.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	const op = "subscription.Unsubscribe"

	if email == "" {
		return fmt.Errorf("%s: %w: email is required", op, apperr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	idx := slices.IndexFunc(subs, func(sub models.Subscriber) bool { return sub.Email == email })
	if idx < 0 {
		return fmt.Errorf("%s: %w: subscriber not found", op, apperr.ErrNotFound)
	}

	subs[idx].IsActive = false
	subs[idx].UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, subs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscriber unsubscribed", slog.String("id", subs[idx].ID), sl.Email(email))
	s.record(EventUnsubscribed)
	return nil
}

// List возвращает подписчиков в порядке хранения; activeOnly отбрасывает
// отписавшихся.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Subscriber, error) {
	const op = "subscription.List"

	subs, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !activeOnly {
		return subs, nil
	}
	return slices.DeleteFunc(subs, func(sub models.Subscriber) bool { return !sub.IsActive }), nil
}

// Active возвращает активных подписчиков.
func (s *Service) Active(ctx context.Context) ([]models.Subscriber, error) {
	return s.List(ctx, true)
}

func (s *Service) record(event string) {
	if s.metrics != nil {
		s.metrics.RecordSubscription(event)
	}
}
