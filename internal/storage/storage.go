// Package storage описывает хранилище подписчиков.
//
// Коллекция подписчиков — единица хранения: Load читает её целиком, Save
// целиком заменяет. Блокировок хранилище не даёт: дисциплину одного
// писателя обеспечивает вызывающая сторона (сервис подписок).
package storage

import (
	"context"

	"github.com/magabrotheeeer/market-digest/internal/models"
)

// SubscriberStore хранит коллекцию подписчиков целиком.
type SubscriberStore interface {
	// Load возвращает всю коллекцию в порядке сохранения.
	// Если данных ещё нет, возвращает пустой срез без ошибки.
	Load(ctx context.Context) ([]models.Subscriber, error)
	// Save атомарно заменяет сохранённую коллекцию.
	Save(ctx context.Context, subscribers []models.Subscriber) error
}
