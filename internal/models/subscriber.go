// Package models содержит доменные структуры рассылки: подписчика,
// письмо, рыночный снимок и вспомогательные типы для JSON-запросов.
package models

import (
	"slices"
	"time"
)

// Частота рассылки дайджеста.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Subscriber представляет подписчика рассылки.
// Запись никогда не удаляется физически: отписка только снимает IsActive.
type Subscriber struct {
	ID        string    `json:"id"`         // Стабильный идентификатор, назначается при создании
	Email     string    `json:"email"`      // Уникальный ключ, сравнивается как есть
	Name      string    `json:"name"`       // Отображаемое имя (опционально)
	Topics    []string  `json:"topics"`     // Интересующие темы
	Sources   []string  `json:"sources"`    // Предпочитаемые источники
	Frequency string    `json:"frequency"`  // Частота рассылки
	IsActive  bool      `json:"is_active"`  // false — подписчик отписался
	CreatedAt time.Time `json:"created_at"` // Не меняется после создания
	UpdatedAt time.Time `json:"updated_at"` // Обновляется при каждой записи
}

// SubscribeRequest используется для приёма данных подписки из JSON-запроса.
type SubscribeRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Name      string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Topics    []string `json:"topics,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Frequency string   `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly"`
}

// UnsubscribeRequest используется для приёма адреса отписки из JSON-запроса.
type UnsubscribeRequest struct {
	Email string `json:"email" validate:"required"`
}

// WelcomeJob — задание на отправку приветственного письма новому подписчику.
// Ставится в очередь после успешного сохранения подписки.
type WelcomeJob struct {
	SubscriberID string   `json:"subscriber_id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Topics       []string `json:"topics"`
	Sources      []string `json:"sources"`
	Frequency    string   `json:"frequency"`
}

// NewWelcomeJob собирает задание на приветственное письмо из подписчика.
func NewWelcomeJob(s Subscriber) WelcomeJob {
	return WelcomeJob{
		SubscriberID: s.ID,
		Email:        s.Email,
		Name:         s.Name,
		Topics:       slices.Clone(s.Topics),
		Sources:      slices.Clone(s.Sources),
		Frequency:    s.Frequency,
	}
}

// NormalizeTags превращает список тегов в множество: убирает пустые
// значения и дубликаты, сортирует. Порядок тегов не имеет значения.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
