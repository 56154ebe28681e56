// Package metrics собирает Prometheus-метрики подписок и рассылки.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector собирает метрики сервиса рассылки.
type Collector struct {
	deliveries    *prometheus.CounterVec
	batches       *prometheus.CounterVec
	batchDuration prometheus.Histogram
	subscriptions *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_deliveries_total",
			Help: "Отправленные письма по виду письма и результату",
		}, []string{"kind", "result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_batches_total",
			Help: "Запуски пакетной рассылки по режиму",
		}, []string{"mode"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "digest_batch_duration_seconds",
			Help:    "Длительность пакетной рассылки",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_subscription_events_total",
			Help: "События подписки: created, updated, unsubscribed",
		}, []string{"event"}),
	}

	reg.MustRegister(c.deliveries, c.batches, c.batchDuration, c.subscriptions)
	return c
}

// RecordDelivery учитывает одну попытку отправки.
func (c *Collector) RecordDelivery(kind, result string) {
	c.deliveries.WithLabelValues(kind, result).Inc()
}

// RecordBatch учитывает завершённую пакетную рассылку.
func (c *Collector) RecordBatch(mode string, duration time.Duration) {
	c.batches.WithLabelValues(mode).Inc()
	c.batchDuration.Observe(duration.Seconds())
}

// RecordSubscription учитывает событие подписки.
func (c *Collector) RecordSubscription(event string) {
	c.subscriptions.WithLabelValues(event).Inc()
}

// Handler возвращает HTTP-обработчик для сбора метрик Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
