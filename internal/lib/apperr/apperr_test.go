package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation", err: fmt.Errorf("op: %w", ErrValidation), want: KindValidation},
		{name: "not found", err: fmt.Errorf("op: %w", ErrNotFound), want: KindNotFound},
		{name: "storage wrapped twice", err: fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrStorage)), want: KindStorage},
		{name: "timeout", err: ErrTimeout, want: KindTimeout},
		{name: "transport", err: fmt.Errorf("%w: 550 mailbox unavailable", ErrTransport), want: KindTransport},
		{name: "unknown", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
