// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; the HTTP layer maps each kind to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindNotFound
	KindPrecondition
	KindGateway
	KindGatewayUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindGateway:
		return "gateway"
	case KindGatewayUnavailable:
		return "gateway_unavailable"
	default:
		return "internal"
	}
}

// Error carries a user-facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, nil, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, nil, format, args...)
}

func Precondition(format string, args ...any) *Error {
	return newf(KindPrecondition, nil, format, args...)
}

func Gateway(cause error, format string, args ...any) *Error {
	return newf(KindGateway, cause, format, args...)
}

func GatewayUnavailable(cause error, format string, args ...any) *Error {
	return newf(KindGatewayUnavailable, cause, format, args...)
}

func Internal(cause error, format string, args ...any) *Error {
	return newf(KindInternal, cause, format, args...)
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message, hiding causes of untyped errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
