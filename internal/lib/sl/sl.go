// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — единообразно формировать структурированные поля лога:
// ошибки, адреса получателей и настройку самого логгера.
package sl

import (
	"io"
	"log/slog"
	"strings"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Email возвращает slog.Attr с замаскированным адресом получателя,
// чтобы адреса подписчиков не попадали в логи целиком.
func Email(addr string) slog.Attr {
	return slog.String("email", RedactEmail(addr))
}

// RedactEmail оставляет первые два символа локальной части и домен.
func RedactEmail(addr string) string {
	name, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" {
		return "***@***"
	}
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}

// New создаёт логгер в зависимости от окружения: текстовый с debug-уровнем
// локально, JSON в dev и prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// NewDiscard возвращает логгер, который ничего не пишет. Используется в тестах.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}
