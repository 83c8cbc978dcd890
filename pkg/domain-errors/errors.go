// Package domainerrors defines coded errors that services return and the HTTP
// layer translates. Stores return sentinel errors (pkg/platform/sentinel);
// services wrap them with a code here so handlers never inspect store
// internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeInvalidInput covers malformed or missing request data, including an
	// empty reason on a manual state transition.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound covers unknown subject, outcome, notification, or account ids.
	CodeNotFound Code = "not_found"
	// CodeReferenceMismatch covers a resolving outcome that belongs to a
	// different subject than the one being transitioned.
	CodeReferenceMismatch Code = "reference_mismatch"
	// CodeConflict covers uniqueness violations such as duplicate usernames.
	CodeConflict Code = "conflict"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal covers everything the caller cannot act on.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error preserving the underlying cause for errors.Is/As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err, empty for non-domain errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeReferenceMismatch, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
