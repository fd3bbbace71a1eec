// Package apperr holds the error kinds shared by the gateway, the stores and
// the upload adapter. Callers match kinds with errors.Is; the concrete cause
// stays reachable through errors.Unwrap.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrConfiguration   = errors.New("service not configured")
	ErrService         = errors.New("remote service failed")
	ErrParse           = errors.New("response did not match schema")
	ErrStorage         = errors.New("storage backend failed")
	ErrNotFound        = errors.New("record not found")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalid         = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

func wrap(kind error, err error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func Configuration(format string, args ...any) error {
	return wrap(ErrConfiguration, nil, format, args...)
}

// Service classifies a failed remote call. A context deadline becomes a
// timeout so callers can tell a slow model from a broken one.
func Service(err error, format string, args ...any) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(ErrTimeout, err, format, args...)
	}
	return wrap(ErrService, err, format, args...)
}

func Parse(err error, format string, args ...any) error {
	return wrap(ErrParse, err, format, args...)
}

func Storage(err error, format string, args ...any) error {
	return wrap(ErrStorage, err, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, nil, format, args...)
}

func Invalid(err error, format string, args ...any) error {
	return wrap(ErrInvalid, err, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, nil, format, args...)
}

func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, nil, format, args...)
}

func PayloadTooLarge(size, limit int64) error {
	return wrap(ErrPayloadTooLarge, nil, "payload of %d bytes exceeds limit of %d bytes", size, limit)
}

// Status maps an error kind onto the HTTP status handlers respond with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrConfiguration):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, ErrService), errors.Is(err, ErrParse):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrPayloadTooLarge):
		return fiber.StatusRequestEntityTooLarge
	default:
		return fiber.StatusInternalServerError
	}
}

// Fiber converts err into the *fiber.Error a handler returns.
func Fiber(err error) error {
	return fiber.NewError(Status(err), err.Error())
}
