// Package apperr defines the typed errors handlers return and the
// boundary middleware renders.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Kind classifies an error for status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindProcessing
	KindUpstream
	KindTimeout
	KindTooManyRequests
	KindUnsupportedMedia
)

var statusByKind = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindValidation:       http.StatusUnprocessableEntity,
	KindBadRequest:       http.StatusBadRequest,
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindUnauthorized:     http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindProcessing:       http.StatusBadRequest,
	KindUpstream:         http.StatusBadGateway,
	KindTimeout:          http.StatusGatewayTimeout,
	KindTooManyRequests:  http.StatusTooManyRequests,
	KindUnsupportedMedia: http.StatusUnsupportedMediaType,
}

var resultByKind = map[Kind]string{
	KindValidation: "Validation error",
	KindBadRequest: "Bad Request",
	KindConflict:   "Conflict",
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	// Detail carries per-field validation messages, if any.
	Detail map[string]string
	Err    error
	stack  []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int { return statusByKind[e.Kind] }

// Result returns the envelope result label for the error kind.
func (e *Error) Result() string {
	if r, ok := resultByKind[e.Kind]; ok {
		return r
	}
	return "error"
}

// Stack returns the goroutine stack captured when the error was built.
func (e *Error) Stack() string { return string(e.stack) }

func newErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err, stack: debug.Stack()}
}

func Validation(msg string) *Error { return newErr(KindValidation, msg, nil) }

// ValidationFields builds a ValidationError with per-field detail.
func ValidationFields(msg string, detail map[string]string) *Error {
	e := newErr(KindValidation, msg, nil)
	e.Detail = detail
	return e
}

func BadRequest(msg string) *Error { return newErr(KindBadRequest, msg, nil) }
func NotFound(msg string) *Error { return newErr(KindNotFound, msg, nil) }
func Conflict(msg string) *Error { return newErr(KindConflict, msg, nil) }
func Unauthorized(msg string) *Error { return newErr(KindUnauthorized, msg, nil) }
func Forbidden(msg string) *Error { return newErr(KindForbidden, msg, nil) }
func Processing(err error) *Error { return newErr(KindProcessing, "processing error", err) }
func Timeout(msg string) *Error { return newErr(KindTimeout, msg, nil) }
func TooManyRequests() *Error { return newErr(KindTooManyRequests, "rate limit exceeded", nil) }
func UnsupportedMedia(msg string) *Error { return newErr(KindUnsupportedMedia, msg, nil) }

func Upstream(msg string, err error) *Error { return newErr(KindUpstream, msg, err) }
func Internal(err error) *Error { return newErr(KindInternal, "Internal Server Error", err) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
