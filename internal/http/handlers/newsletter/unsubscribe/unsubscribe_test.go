package unsubscribe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
)

// MockService реализует интерфейс unsubscribe.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Unsubscribe(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func TestUnsubscribeHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная отписка",
			body: `{"email":"ann@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Unsubscribe", mock.Anything, "ann@example.com").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"email":"ann@example.com"}}`,
		},
		{
			name: "пустой email",
			body: `{}`,
			setupMock: func(m *MockService) {
				m.On("Unsubscribe", mock.Anything, "").
					Return(fmt.Errorf("subscription.Unsubscribe: %w: email is required", apperr.ErrValidation))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","kind":"validation","error":"email is required"}`,
		},
		{
			name: "неизвестный подписчик",
			body: `{"email":"ghost@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Unsubscribe", mock.Anything, "ghost@example.com").
					Return(fmt.Errorf("subscription.Unsubscribe: %w", apperr.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","kind":"not_found","error":"subscriber not found"}`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"email":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","kind":"validation","error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(sl.NewDiscard(), mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/unsubscribe", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
