// Package redisstore хранит коллекцию подписчиков одним JSON-значением в Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Store реализует storage.SubscriberStore поверх Redis.
type Store struct {
	Db  *redis.Client
	key string
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection, key string) (*Store, error) {
	const op = "redisstore.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{Db: db, key: key}, nil
}

// Load читает коллекцию. Отсутствующий ключ — пустая коллекция.
func (s *Store) Load(ctx context.Context) ([]models.Subscriber, error) {
	const op = "redisstore.Load"
	val, err := s.Db.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}

	var subscribers []models.Subscriber
	if err := json.Unmarshal(val, &subscribers); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if subscribers == nil {
		subscribers = []models.Subscriber{}
	}
	return subscribers, nil
}

// Save перезаписывает ключ всей коллекцией одной командой SET.
func (s *Store) Save(ctx context.Context, subscribers []models.Subscriber) error {
	const op = "redisstore.Save"
	if subscribers == nil {
		subscribers = []models.Subscriber{}
	}
	data, err := json.Marshal(subscribers)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if err := s.Db.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *Store) Close() error {
	return s.Db.Close()
}
