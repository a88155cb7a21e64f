// Package errors defines the sentinel errors shared by the search services
// and maps them onto HTTP status codes and short machine-readable codes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQueryTooLong     = errors.New("query too long")
	ErrNotFound         = errors.New("not found")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

// kinds is checked in order; the first sentinel matched by errors.Is wins.
var kinds = []struct {
	sentinel error
	status   int
	code     string
}{
	{ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{ErrQueryTooLong, http.StatusRequestEntityTooLarge, "query_too_long"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{ErrTimeout, http.StatusGatewayTimeout, "timeout"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// AppError attaches a caller-facing message and status to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode prefers an AppError's explicit status, then the sentinel
// table, then 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the short code for err's sentinel, or "internal".
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.code
		}
	}
	return "internal"
}
