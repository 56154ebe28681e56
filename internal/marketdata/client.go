// Package marketdata получает рыночный снимок от внешнего сервиса аналитики.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Client запрашивает снимок по HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient создаёт клиент. Ответ должен быть JSON-объектом models.Snapshot.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		url:        endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Snapshot запрашивает актуальный снимок.
func (c *Client) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	const op = "marketdata.Snapshot"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, body)
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &snap, nil
}

// FileSource читает снимок из JSON-файла. Для локального запуска без
// сервиса аналитики.
type FileSource struct {
	path string
}

// NewFileSource создаёт FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Snapshot читает и разбирает файл при каждом вызове.
func (s *FileSource) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	const op = "marketdata.FileSource.Snapshot"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &snap, nil
}

// Source описывает источник снимка.
type Source interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// NewSource выбирает источник по схеме адреса: file:// читает локальный
// файл, остальное запрашивается по HTTP.
func NewSource(rawURL string, timeout time.Duration) (Source, error) {
	const op = "marketdata.NewSource"
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch u.Scheme {
	case "file":
		return NewFileSource(u.Path), nil
	case "http", "https":
		return NewClient(rawURL, timeout), nil
	default:
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}
}
