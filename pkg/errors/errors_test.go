package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"wrapped invalid input", fmt.Errorf("parsing page: %w", ErrInvalidInput), http.StatusBadRequest},
		{"query too long", ErrQueryTooLong, http.StatusRequestEntityTooLarge},
		{"index unavailable", ErrIndexUnavailable, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("search: %w", ErrTimeout), http.StatusGatewayTimeout},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unknown", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrTimeout, http.StatusGatewayTimeout, "search exceeded %s", "500ms")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "operation timed out: search exceeded 500ms", err.Error())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "query_too_long", Code(Newf(ErrQueryTooLong, http.StatusRequestEntityTooLarge, "limit %d", 10)))
	assert.Equal(t, "index_unavailable", Code(fmt.Errorf("reload: %w", ErrIndexUnavailable)))
	assert.Equal(t, "timeout", Code(context.DeadlineExceeded))
	assert.Equal(t, "internal", Code(ErrInternal))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatusCode(fmt.Errorf("search: %w", context.DeadlineExceeded)))
}
