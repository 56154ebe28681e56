// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
)

// Response описывает стандартную структуру успешного JSON‑ответа сервера.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse описывает ответ с ошибкой. Kind — машинно-читаемый вид
// ошибки (validation, not_found, storage, internal).
type ErrorResponse struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse с видом ошибки и сообщением.
func Error(kind, msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Kind:   kind,
		Error:  msg,
	}
}

// FromError подбирает HTTP-статус и тело ответа по виду ошибки сервиса.
// Подробности хранилища клиенту не отдаются.
func FromError(err error) (int, ErrorResponse) {
	kind := apperr.Kind(err)
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, Error(kind, validationMessage(err))
	case apperr.KindNotFound:
		return http.StatusNotFound, Error(kind, "subscriber not found")
	case apperr.KindStorage:
		return http.StatusInternalServerError, Error(kind, "storage unavailable")
	default:
		return http.StatusInternalServerError, Error(apperr.KindInternal, "internal error")
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, apperr.ErrValidation.Error()+": "); ok {
		return after
	}
	return msg
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email address", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(apperr.KindValidation, strings.Join(errsMsgs, ", "))
}
