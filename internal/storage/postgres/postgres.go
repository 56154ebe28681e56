// Package postgres реализует хранилище подписчиков на основе PostgreSQL.
// Коллекция хранится в таблице subscribers; порядок задаётся колонкой position.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// NewWithDB оборачивает готовое соединение.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{DB: db}
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'subscribers'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("required table subscribers query error: %w", err)
	}
	if !exists {
		return fmt.Errorf("required table subscribers missing")
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Load возвращает всех подписчиков в порядке сохранения.
func (s *Storage) Load(ctx context.Context) ([]models.Subscriber, error) {
	const op = "storage.postgres.Load"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, name, topics, sources, frequency, is_active, created_at, updated_at
			  FROM subscribers
			  ORDER BY position`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Subscriber{}
	for rows.Next() {
		var item models.Subscriber
		var topics, sources []byte
		if err := rows.Scan(&item.ID, &item.Email, &item.Name, &topics, &sources,
			&item.Frequency, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
		}
		if item.Topics, err = decodeTags(topics); err != nil {
			return nil, fmt.Errorf("%s: %w: topics: %w", op, apperr.ErrStorage, err)
		}
		if item.Sources, err = decodeTags(sources); err != nil {
			return nil, fmt.Errorf("%s: %w: sources: %w", op, apperr.ErrStorage, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	return result, nil
}

// Save заменяет всю коллекцию в одной транзакции.
func (s *Storage) Save(ctx context.Context, subscribers []models.Subscriber) (err error) {
	const op = "storage.postgres.Save"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subscribers`); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}

	query := `INSERT INTO subscribers (id, position, email, name, topics, sources,
				  frequency, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, sub := range subscribers {
		topics, encErr := encodeTags(sub.Topics)
		if encErr != nil {
			err = encErr
			return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
		}
		sources, encErr := encodeTags(sub.Sources)
		if encErr != nil {
			err = encErr
			return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
		}
		if _, err = tx.ExecContext(ctx, query,
			sub.ID, i, sub.Email, sub.Name, topics, sources,
			sub.Frequency, sub.IsActive, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTags(data []byte) ([]string, error) {
	tags := []string{}
	if len(data) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// WaitReady ждёт, пока база станет доступна и миграции будут применены.
func WaitReady(ctx context.Context, storage *Storage, attempts int, delay time.Duration) error {
	var err error
	for range attempts {
		if err = CheckDatabaseReady(storage); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", attempts, err)
}
