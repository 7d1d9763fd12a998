// Package httperr defines the application error taxonomy and the central
// echo error handler that maps every error to a uniform problem JSON shape.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindEmailUnavailable
)

// FieldError carries a validation message for a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type. All service-layer failures are
// expressed as *Error; anything else is normalized to Internal by the handler.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logging without changing what
// the client sees.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func BadRequest(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Fields: fields}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func EmailUnavailable(msg string) *Error {
	return &Error{Kind: KindEmailUnavailable, Message: msg}
}

func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

func statusFor(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindEmailUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func titleFor(kind Kind) string {
	switch kind {
	case KindBadRequest:
		return "Bad Request"
	case KindNotFound:
		return "Resource not found"
	case KindForbidden:
		return "Access forbidden"
	case KindUnauthorized:
		return "Unauthorized access"
	case KindEmailUnavailable:
		return "Email service unavailable"
	default:
		return "Internal server error"
	}
}

// Problem is the JSON body returned for every error response.
type Problem struct {
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Handler returns a central echo HTTPErrorHandler. Application errors keep
// their kind; echo HTTP errors keep their status; anything else becomes a
// generic 500 so internals never leak.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		var echoErr *echo.HTTPError

		problem := Problem{
			Title:  titleFor(KindInternal),
			Status: http.StatusInternalServerError,
		}

		switch {
		case errors.As(err, &appErr):
			problem.Title = titleFor(appErr.Kind)
			problem.Status = statusFor(appErr.Kind)
			problem.Errors = appErr.Fields
			if appErr.Kind != KindInternal {
				problem.Detail = appErr.Message
			}
			evt := logger.Warn()
			if appErr.Kind == KindInternal || appErr.Kind == KindEmailUnavailable {
				evt = logger.Error()
			}
			evt.Err(err).Int("status", problem.Status).Str("path", c.Request().URL.Path).Msg("request failed")
		case errors.As(err, &echoErr):
			problem.Status = echoErr.Code
			problem.Title = http.StatusText(echoErr.Code)
			if msg, ok := echoErr.Message.(string); ok {
				problem.Detail = msg
			}
			logger.Warn().Err(err).Int("status", problem.Status).Str("path", c.Request().URL.Path).Msg("request failed")
		default:
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(problem.Status)
			return
		}
		_ = c.JSON(problem.Status, problem)
	}
}
