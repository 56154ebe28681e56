// Package filestore хранит коллекцию подписчиков в одном JSON-файле.
// Файл перезаписывается целиком через временный файл и rename.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Store реализует storage.SubscriberStore поверх JSON-файла.
type Store struct {
	path string
}

// New создаёт хранилище и каталог для файла, если его ещё нет.
func New(path string) (*Store, error) {
	const op = "filestore.New"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	return &Store{path: path}, nil
}

// Load читает коллекцию. Отсутствующий или пустой файл — пустая коллекция.
func (s *Store) Load(ctx context.Context) ([]models.Subscriber, error) {
	const op = "filestore.Load"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if len(data) == 0 {
		return []models.Subscriber{}, nil
	}

	var subscribers []models.Subscriber
	if err := json.Unmarshal(data, &subscribers); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if subscribers == nil {
		subscribers = []models.Subscriber{}
	}
	return subscribers, nil
}

// Save записывает коллекцию во временный файл и атомарно подменяет основной.
func (s *Store) Save(ctx context.Context, subscribers []models.Subscriber) error {
	const op = "filestore.Save"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if subscribers == nil {
		subscribers = []models.Subscriber{}
	}
	data, err := json.MarshalIndent(subscribers, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscribers-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
	}
	return nil
}
