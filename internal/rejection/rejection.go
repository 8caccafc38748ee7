// Package rejection classifies failures of engagement operations so callers can
// choose user-facing copy without parsing error strings.
package rejection

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindStorage
	KindAuthorization
	KindEmptyPool
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindAuthorization:
		return "authorization"
	case KindEmptyPool:
		return "empty_pool"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind onto the status code the API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindStorage:
		return http.StatusServiceUnavailable
	case KindAuthorization:
		return http.StatusForbidden
	case KindEmptyPool:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified rejection. Reason is safe to show to the operator.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel rejections by kind and reason so that a wrapped copy
// carrying a cause still compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// With returns a copy of the sentinel carrying cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Reason: e.Reason, Err: cause}
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Validation(reason string) *Error { return New(KindValidation, reason) }

func Conflict(reason string) *Error { return New(KindConflict, reason) }

func NotFound(reason string) *Error { return New(KindNotFound, reason) }

func Unauthorized(reason string) *Error { return New(KindAuthorization, reason) }

func EmptyPool(reason string) *Error { return New(KindEmptyPool, reason) }

// Storage wraps a backend failure. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var rej *Error
	if errors.As(err, &rej) {
		return err
	}
	return &Error{Kind: KindStorage, Reason: op, Err: err}
}

// KindOf returns the classification of err, KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var rej *Error
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return KindUnknown
}

// ReasonOf returns the operator-facing reason, or fallback for unclassified errors.
func ReasonOf(err error, fallback string) string {
	var rej *Error
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return fallback
}
