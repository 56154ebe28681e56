package sl_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("something went wrong")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "long local part", in: "alice@example.com", want: "al***@example.com"},
		{name: "short local part", in: "al@example.com", want: "***@example.com"},
		{name: "no at sign", in: "not-an-email", want: "***@***"},
		{name: "empty domain", in: "bob@", want: "***@***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sl.RedactEmail(tt.in))
		})
	}
}

func TestEmail_Attr(t *testing.T) {
	attr := sl.Email("alice@example.com")
	assert.Equal(t, "email", attr.Key)
	assert.Equal(t, "al***@example.com", attr.Value.String())
}

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := sl.New("prod", &buf)

	log.Debug("hidden")
	log.Info("visible", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestNew_LocalWritesText(t *testing.T) {
	var buf bytes.Buffer
	log := sl.New("local", &buf)

	log.Debug("debug line")

	assert.Contains(t, buf.String(), "msg=\"debug line\"")
}
