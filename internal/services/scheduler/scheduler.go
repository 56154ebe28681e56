// Package scheduler запускает рассылку дайджеста по расписанию: загружает
// активных подписчиков, рендерит один общий дайджест и отправляет его пакетом.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/magabrotheeeer/market-digest/internal/digest"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
	"github.com/magabrotheeeer/market-digest/internal/services/delivery"
)

// State — стадия прогона рассылки.
type State int32

const (
	StateIdle State = iota
	StateTriggered
	StateLoadingSubscribers
	StateRenderingContent
	StateDelivering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateLoadingSubscribers:
		return "loading_subscribers"
	case StateRenderingContent:
		return "rendering_content"
	case StateDelivering:
		return "delivering"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const narrateTimeout = 30 * time.Second

// ErrAlreadyStarted возвращается при повторном Start.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Subscribers возвращает активных подписчиков.
type Subscribers interface {
	Active(ctx context.Context) ([]models.Subscriber, error)
}

// Renderer рендерит дайджест.
type Renderer interface {
	Digest(snap *models.Snapshot, narrative string) (models.Content, error)
}

// BatchSender отправляет пакет писем.
type BatchSender interface {
	SendBatch(ctx context.Context, messages []models.Message) delivery.BatchResult
}

// Report — итог одного прогона.
type Report struct {
	TriggeredAt time.Time            `json:"triggered_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Recipients  int                  `json:"recipients"`
	FailedStage string               `json:"failed_stage,omitempty"`
	Error       string               `json:"error,omitempty"`
	Narrated    bool                 `json:"narrated"`
	Batch       delivery.BatchResult `json:"batch"`
}

// Scheduler связывает триггер с прогоном рассылки. Защиты от
// пересекающихся прогонов нет: ручной запуск рядом с плановым приведёт к
// двум рассылкам.
type Scheduler struct {
	trigger     Trigger
	subscribers Subscribers
	source      digest.SnapshotSource
	narrator    digest.Narrator
	renderer    Renderer
	sender      BatchSender
	log         *slog.Logger
	now         func() time.Time

	state atomic.Int32

	mu      sync.Mutex
	started bool
	baseCtx context.Context
	runs    sync.WaitGroup
}

// New создаёт планировщик. narrator может быть nil: дайджест уйдёт без
// текстового комментария.
func New(
	trigger Trigger,
	subscribers Subscribers,
	source digest.SnapshotSource,
	narrator digest.Narrator,
	renderer Renderer,
	sender BatchSender,
	log *slog.Logger,
) *Scheduler {
	return &Scheduler{
		trigger:     trigger,
		subscribers: subscribers,
		source:      source,
		narrator:    narrator,
		renderer:    renderer,
		sender:      sender,
		log:         log,
		now:         time.Now,
		baseCtx:     context.Background(),
	}
}

// Start подписывается на триггер. ctx ограничивает прогоны, запущенные
// триггером и RunAsync.
func (s *Scheduler) Start(ctx context.Context) error {
	const op = "scheduler.Start"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%s: %w", op, ErrAlreadyStarted)
	}
	s.baseCtx = ctx
	fire := func(now time.Time) {
		s.runs.Add(1)
		defer s.runs.Done()
		s.run(ctx, now)
	}
	if err := s.trigger.Start(fire); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.started = true
	s.log.Info("scheduler started")
	return nil
}

// Stop отключает триггер и ждёт завершения идущих прогонов.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		s.trigger.Stop()
	}
	s.runs.Wait()
	s.log.Info("scheduler stopped")
}

// RunAsync запускает внеплановый прогон в фоне.
func (s *Scheduler) RunAsync() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.run(ctx, s.now())
	}()
}

// State возвращает текущую стадию.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) run(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("digest run panicked", slog.Any("panic", r))
			s.setState(StateIdle)
		}
	}()
	s.RunOnce(ctx, now)
}

// RunOnce выполняет один прогон рассылки. Ошибка любой стадии
// логируется и попадает в отчёт, после чего планировщик возвращается в Idle.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (report Report) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op), slog.Time("triggered_at", now))
	report = Report{TriggeredAt: now}

	s.setState(StateTriggered)
	defer func() {
		report.FinishedAt = s.now()
		s.setState(StateIdle)
	}()

	fail := func(stage State, err error) Report {
		report.FailedStage = stage.String()
		report.Error = err.Error()
		log.Error("digest run failed", slog.String("stage", stage.String()), sl.Err(err))
		return report
	}

	s.setState(StateLoadingSubscribers)
	subs, err := s.subscribers.Active(ctx)
	if err != nil {
		return fail(StateLoadingSubscribers, err)
	}
	report.Recipients = len(subs)
	if len(subs) == 0 {
		log.Info("no active subscribers, nothing to send")
		return report
	}

	s.setState(StateRenderingContent)
	content, narrated, err := s.render(ctx)
	if err != nil {
		return fail(StateRenderingContent, err)
	}
	report.Narrated = narrated

	s.setState(StateDelivering)
	messages := make([]models.Message, 0, len(subs))
	for _, sub := range subs {
		messages = append(messages, models.NewMessage(sub.Email, models.KindDigest, content))
	}
	report.Batch = s.sender.SendBatch(ctx, messages)

	log.Info("digest run finished",
		slog.Int("recipients", report.Recipients),
		slog.Int("succeeded", report.Batch.Succeeded),
		slog.Int("failed", report.Batch.Failed),
		slog.String("mode", report.Batch.Mode),
	)
	return report
}

func (s *Scheduler) render(ctx context.Context) (models.Content, bool, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return models.Content{}, false, fmt.Errorf("snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return models.Content{}, false, err
	}

	narrative := ""
	if s.narrator != nil {
		nctx, cancel := context.WithTimeout(ctx, narrateTimeout)
		narrative, err = s.narrator.Narrate(nctx, snap)
		cancel()
		if err != nil {
			s.log.Warn("narrative unavailable, sending digest without it", sl.Err(err))
			narrative = ""
		}
	}

	content, err := s.renderer.Digest(snap, narrative)
	if err != nil {
		return models.Content{}, false, err
	}
	return content, narrative != "", nil
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}
