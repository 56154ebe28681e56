package welcome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/market-digest/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// ErrQueueFull возвращается, когда локальная очередь переполнена.
var ErrQueueFull = errors.New("welcome queue is full")

// ErrQueueClosed возвращается после остановки локальной очереди.
var ErrQueueClosed = errors.New("welcome queue is closed")

// Handler обрабатывает одно задание.
type Handler interface {
	Handle(ctx context.Context, job models.WelcomeJob) error
}

// LocalQueue — очередь в памяти процесса с одним обработчиком.
// Задания, не обработанные до остановки процесса, теряются.
type LocalQueue struct {
	jobs    chan models.WelcomeJob
	handler Handler
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewLocalQueue создаёт очередь ёмкостью buffer.
func NewLocalQueue(buffer int, handler Handler, log *slog.Logger) *LocalQueue {
	return &LocalQueue{
		jobs:    make(chan models.WelcomeJob, max(buffer, 1)),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Enqueue ставит задание в очередь без ожидания.
func (q *LocalQueue) Enqueue(ctx context.Context, job models.WelcomeJob) error {
	const op = "welcome.LocalQueue.Enqueue"
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("%s: %w", op, ErrQueueClosed)
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return fmt.Errorf("%s: %w", op, ErrQueueFull)
	}
}

// Run обрабатывает задания до Close, затем дорабатывает оставшиеся в буфере.
// Отмена ctx прерывает ожидание отправки текущего письма.
func (q *LocalQueue) Run(ctx context.Context) {
	defer close(q.done)
	for job := range q.jobs {
		if err := q.handler.Handle(ctx, job); err != nil {
			q.log.Error("welcome job failed", sl.Email(job.Email), sl.Err(err))
		}
	}
}

// Close прекращает приём заданий и ждёт завершения Run.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}

// AMQPQueue публикует задания в RabbitMQ.
type AMQPQueue struct {
	ch rabbitmq.Publisher
}

// NewAMQPQueue создаёт AMQPQueue поверх канала с объявленной топологией.
func NewAMQPQueue(ch rabbitmq.Publisher) *AMQPQueue {
	return &AMQPQueue{ch: ch}
}

// Enqueue публикует задание в exchange рассылки.
func (q *AMQPQueue) Enqueue(ctx context.Context, job models.WelcomeJob) error {
	const op = "welcome.AMQPQueue.Enqueue"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rabbitmq.PublishMessage(q.ch, rabbitmq.NewsletterExchange, rabbitmq.WelcomeRoutingKey, job); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Consume обрабатывает очередь приветствий до отмены ctx. Задание с ошибкой
// отбрасывается без повторной доставки.
func Consume(ctx context.Context, ch *amqp.Channel, sender *Sender, log *slog.Logger) error {
	return rabbitmq.Consume(ctx, ch, rabbitmq.WelcomeQueue, sender.HandleMessage, log)
}
