package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Failure reasons used as log attributes and metric labels.
const (
	ReasonClientError = "client_error"
	ReasonServerError = "server_error"
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonTransport   = "transport"
	ReasonUnknown     = "unknown"
)

// SpiraError represents a non-2xx answer from the Spira REST API.
type SpiraError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *SpiraError) Error() string {
	return fmt.Sprintf("Spira API error (status %d): %s", e.StatusCode, e.Message)
}

// NewSpiraError creates a new SpiraError. An empty message falls back to the status text.
func NewSpiraError(statusCode int, message string) *SpiraError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &SpiraError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// Reason classifies a submission failure.
func Reason(err error) string {
	var spiraErr *SpiraError
	var netErr interface{ Timeout() bool }

	switch {
	case err == nil:
		return ""
	case errors.As(err, &spiraErr):
		if spiraErr.StatusCode >= 500 {
			return ReasonServerError
		}
		return ReasonClientError
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.As(err, &netErr):
		return ReasonTransport
	}
	return ReasonUnknown
}
