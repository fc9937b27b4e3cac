package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", New(ErrInvalidConfig, "missing -d"), ExitUsage},
		{"input", Newf(ErrInvalidInput, "bad name %q", "abc"), ExitInput},
		{"wrapped corrupt", fmt.Errorf("reading postings: %w", New(ErrCorruptIndex, "short read")), ExitCorrupt},
		{"bare sentinel", fmt.Errorf("x: %w", ErrCorruptIndex), ExitCorrupt},
		{"plain io", fmt.Errorf("open: no such file"), ExitIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("build: %w", Newf(ErrInvalidInput, "document %q", "x1"))
	assert.True(t, Is(err, ErrInvalidInput))
	assert.False(t, Is(err, ErrCorruptIndex))
	assert.Equal(t, `build: invalid input: document "x1"`, err.Error())

	var appErr *AppError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, ExitInput, appErr.ExitCode)
}

func TestHTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusCode(New(ErrInvalidInput, "q")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusCode(New(ErrCorruptIndex, "p")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusCode(fmt.Errorf("boom")))
}
