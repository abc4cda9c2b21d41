package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Every kind maps to a distinct,
// actionable user-facing message; CapacityExceeded and InvalidState in
// particular must stay distinguishable for the client.
type Kind int

const (
	KindValidation Kind = iota
	KindCapacityExceeded
	KindInvalidState
	KindDuplicateRating
	KindNotEligible
	KindUnauthorized
	KindNotFound
	KindInternal
)

// Error carries a kind and a user-facing message, optionally wrapping a
// lower-level cause.
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

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func CapacityExceeded(requestID uint) *Error {
	return &Error{Kind: KindCapacityExceeded, Message: fmt.Sprintf("meal request %d is already full", requestID)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func DuplicateRating(ratedID, requestID uint) *Error {
	return &Error{Kind: KindDuplicateRating, Message: fmt.Sprintf("user %d was already rated for request %d", ratedID, requestID)}
}

func NotEligible(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotEligible, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindCapacityExceeded:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindDuplicateRating:
		return http.StatusConflict
	case KindNotEligible:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
