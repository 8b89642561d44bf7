// Package apperr defines the error kinds shared by services, adapters and
// HTTP handlers. Callers wrap one of the sentinel kinds and match them with
// errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream error")
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Internal wraps a local failure (usually the document store) so that both the
// ErrInternal kind and the cause stay reachable through errors.Is / errors.As.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrInternal, err))
}

// UpstreamError reports a failed call to an external system (ERP, billing
// provider, mail relay). Message carries the raw provider message or body.
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Upstream builds an *UpstreamError from a transport or provider error.
func Upstream(service, op string, err error) error {
	return &UpstreamError{Service: service, Op: op, Message: errMessage(err), Err: err}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API reports for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show to API clients. Internal
// failures are reported generically.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
