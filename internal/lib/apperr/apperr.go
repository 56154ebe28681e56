// Package apperr описывает таксономию ошибок сервиса рассылки.
// Ошибки оборачиваются через fmt.Errorf("%s: %w", op, err) и проверяются
// на границах через errors.Is.
package apperr

import "errors"

var (
	// ErrValidation: входные данные некорректны или отсутствуют.
	ErrValidation = errors.New("validation error")
	// ErrNotFound означает, что подписчика с таким адресом нет.
	ErrNotFound = errors.New("not found")
	// ErrStorage оборачивает сбои загрузки и сохранения коллекции.
	ErrStorage = errors.New("storage error")
	// ErrTimeout: отправка не уложилась в отведённое время.
	ErrTimeout = errors.New("delivery timeout")
	// ErrTransport возвращает почтовый транспорт.
	ErrTransport = errors.New("transport error")
)

// Виды ошибок, которые уходят клиенту в поле kind.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindStorage    = "storage"
	KindTimeout    = "timeout"
	KindTransport  = "transport"
	KindInternal   = "internal"
)

// Kind возвращает вид ошибки для ответа клиенту или метрик.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindInternal
	}
}
