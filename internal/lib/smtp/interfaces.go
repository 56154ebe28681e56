// Package smtp отправляет письма через SMTP сервер.
package smtp

import (
	"context"
	"io"
)

// Client интерфейс для SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает SMTP сессию.
type Dialer interface {
	Connect(ctx context.Context) (Client, error)
}
