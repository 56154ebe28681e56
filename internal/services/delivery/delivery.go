// Package delivery реализует движок доставки писем: отправку одного письма
// с ограничением времени ожидания, последовательную пакетную рассылку с
// изоляцией ошибок по получателям, темп отправки и тестовый режим.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Режимы пакетной рассылки.
const (
	ModeNormal     = "normal"
	ModeRedirected = "redirected"
	ModeSuppressed = "suppressed"
)

// Результаты отдельной отправки для метрик.
const (
	resultSent    = "sent"
	resultTimeout = "timeout"
	resultFailed  = "failed"
)

// Transport отправляет одно письмо и возвращает идентификатор сообщения
// у провайдера. Отмена ctx не гарантирует, что письмо не будет доставлено.
type Transport interface {
	Send(ctx context.Context, msg models.Message) (string, error)
}

// Recorder принимает метрики доставки.
type Recorder interface {
	RecordDelivery(kind, result string)
	RecordBatch(mode string, duration time.Duration)
}

// Options настраивает Engine.
type Options struct {
	MessageTimeout time.Duration // Время ожидания одной отправки
	Pacer          Pacer         // Темп между отправками; nil — без пауз
	TestMode       bool          // Тестовый режим рассылки
	TestRecipient  string        // Адрес, на который перенаправляется тестовая рассылка
	Metrics        Recorder      // nil — метрики не пишутся
}

// Engine отправляет письма через Transport.
type Engine struct {
	transport Transport
	timeout   time.Duration
	pacer     Pacer
	metrics   Recorder
	log       *slog.Logger
	now       func() time.Time

	mu            sync.RWMutex
	testMode      bool
	testRecipient string
}

// Failure описывает неудачную отправку одному получателю.
type Failure struct {
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// BatchResult — итог пакетной рассылки.
type BatchResult struct {
	Mode      string           `json:"mode"`
	Requested int              `json:"requested"`
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Receipts  []models.Receipt `json:"receipts,omitempty"`
	Failures  []Failure        `json:"failures,omitempty"`
}

// OK сообщает, что ни одна отправка не завершилась ошибкой.
func (r BatchResult) OK() bool {
	return r.Failed == 0
}

type sendOutcome struct {
	id  string
	err error
}

// New создаёт Engine.
func New(transport Transport, opts Options, log *slog.Logger) *Engine {
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NoPacer{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Engine{
		transport:     transport,
		timeout:       opts.MessageTimeout,
		pacer:         pacer,
		metrics:       metrics,
		log:           log,
		now:           time.Now,
		testMode:      opts.TestMode,
		testRecipient: opts.TestRecipient,
	}
}

// SetTestMode переключает тестовый режим. Уже идущая рассылка
// продолжает работать в режиме, прочитанном при её старте.
func (e *Engine) SetTestMode(enabled bool, recipient string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.testMode = enabled
	e.testRecipient = recipient
}

func (e *Engine) readTestMode() (bool, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.testMode, e.testRecipient
}

// SendOne отправляет письмо и ждёт результат не дольше timeout.
//
// По истечении timeout возвращается apperr.ErrTimeout; контекст транспорта
// отменяется, но сама попытка может завершиться уже после этого.
// Неположительный timeout заменяется значением из Options.
func (e *Engine) SendOne(ctx context.Context, msg models.Message, timeout time.Duration) (models.Receipt, error) {
	const op = "delivery.SendOne"
	if timeout <= 0 {
		timeout = e.timeout
	}

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan sendOutcome, 1)
	go func() {
		id, err := e.transport.Send(sendCtx, msg)
		done <- sendOutcome{id: id, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			e.metrics.RecordDelivery(msg.Kind, resultFailed)
			return models.Receipt{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrTransport, out.err)
		}
		e.metrics.RecordDelivery(msg.Kind, resultSent)
		return models.Receipt{Recipient: msg.To, MessageID: out.id, SentAt: e.now()}, nil
	case <-timer.C:
		e.metrics.RecordDelivery(msg.Kind, resultTimeout)
		return models.Receipt{}, fmt.Errorf("%s: %w after %s", op, apperr.ErrTimeout, timeout)
	case <-ctx.Done():
		e.metrics.RecordDelivery(msg.Kind, resultFailed)
		return models.Receipt{}, fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// SendBatch последовательно отправляет письма в порядке среза.
//
// Ошибка одному получателю не прерывает рассылку. Тестовый режим читается
// один раз на вызов: при заданном тестовом адресе вся рассылка сводится к
// одному письму на него, без адреса транспорт не вызывается вовсе.
// Контекст учитывается только при ожидании темпа: после его отмены
// оставшиеся получатели попадают в отчёт как неудачные.
func (e *Engine) SendBatch(ctx context.Context, messages []models.Message) BatchResult {
	start := time.Now()
	testMode, testRecipient := e.readTestMode()
	result := BatchResult{Mode: ModeNormal, Requested: len(messages)}

	if testMode {
		if testRecipient == "" {
			result.Mode = ModeSuppressed
			result.Skipped = len(messages)
			e.log.Info("test mode without recipient, batch suppressed", slog.Int("requested", len(messages)))
			e.metrics.RecordBatch(result.Mode, time.Since(start))
			return result
		}
		result.Mode = ModeRedirected
		if len(messages) > 0 {
			redirected := messages[0]
			redirected.To = testRecipient
			result.Skipped = len(messages) - 1
			messages = []models.Message{redirected}
			e.log.Info("test mode, batch redirected",
				slog.Int("requested", result.Requested), sl.Email(testRecipient))
		}
	}

	for i, msg := range messages {
		if err := e.pacer.Wait(ctx); err != nil {
			for _, rest := range messages[i:] {
				result.addFailure(rest.To, err)
			}
			e.log.Warn("batch interrupted", slog.Int("remaining", len(messages)-i), sl.Err(err))
			break
		}

		result.Attempted++
		receipt, err := e.SendOne(ctx, msg, e.timeout)
		if err != nil {
			result.addFailure(msg.To, err)
			e.log.Warn("delivery failed", sl.Email(msg.To), slog.String("kind", msg.Kind), sl.Err(err))
			continue
		}
		result.Succeeded++
		result.Receipts = append(result.Receipts, receipt)
		e.log.Debug("delivered", sl.Email(msg.To), slog.String("message_id", receipt.MessageID))
	}

	e.metrics.RecordBatch(result.Mode, time.Since(start))
	e.log.Info("batch finished",
		slog.String("mode", result.Mode),
		slog.Int("requested", result.Requested),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Duration("took", time.Since(start)),
	)
	return result
}

func (r *BatchResult) addFailure(recipient string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{
		Recipient: recipient,
		Kind:      apperr.Kind(err),
		Error:     err.Error(),
	})
}

type noopRecorder struct{}

func (noopRecorder) RecordDelivery(string, string)       {}
func (noopRecorder) RecordBatch(string, time.Duration) {}
