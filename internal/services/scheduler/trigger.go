package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger вызывает fire в моменты запуска рассылки.
type Trigger interface {
	Start(fire func(now time.Time)) error
	Stop()
}

// CronTrigger запускает рассылку по cron-выражению в заданном часовом поясе.
type CronTrigger struct {
	spec string
	loc  *time.Location
	cron *cron.Cron
}

// NewCronTrigger проверяет выражение (стандартный формат из пяти полей).
func NewCronTrigger(spec string, loc *time.Location) (*CronTrigger, error) {
	const op = "scheduler.NewCronTrigger"
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%s: invalid cron spec %q: %w", op, spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronTrigger{
		spec: spec,
		loc:  loc,
		cron: cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start регистрирует задание и запускает планировщик cron.
func (t *CronTrigger) Start(fire func(now time.Time)) error {
	const op = "scheduler.CronTrigger.Start"
	if _, err := t.cron.AddFunc(t.spec, func() { fire(time.Now().In(t.loc)) }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	t.cron.Start()
	return nil
}

// Stop останавливает cron и ждёт завершения запущенных заданий.
func (t *CronTrigger) Stop() {
	<-t.cron.Stop().Done()
}

// Next возвращает ближайший момент запуска после now.
func (t *CronTrigger) Next(now time.Time) time.Time {
	sched, err := cron.ParseStandard(t.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now.In(t.loc))
}

// ManualTrigger никогда не срабатывает сам: рассылка запускается только
// вручную через RunAsync.
type ManualTrigger struct{}

// Start ничего не планирует.
func (ManualTrigger) Start(func(time.Time)) error { return nil }

// Stop ничего не делает.
func (ManualTrigger) Stop() {}
