package delivery

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer задаёт темп отправки: Wait блокирует до момента, когда можно
// отправить следующее письмо.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer пропускает не больше одного письма за интервал.
// Один экземпляр разделяется всеми рассылками процесса, поэтому лимит
// провайдера соблюдается и для приветственных писем.
type IntervalPacer struct {
	limiter *rate.Limiter
}

// NewPacer возвращает IntervalPacer или NoPacer для неположительного интервала.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NoPacer{}
	}
	return &IntervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait ждёт свободный токен.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoPacer не ограничивает темп.
type NoPacer struct{}

// Wait возвращает ошибку только для отменённого контекста.
func (NoPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
