package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal         = "internal"
	CodeNotFound         = "not_found"
	CodeBadRequest       = "bad_request"
	CodeValidation       = "validation"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeRateLimited      = "rate_limited"
	CodeTooLarge         = "payload_too_large"
	CodeMethodNotAllowed = "method_not_allowed"
)

// Error represents a structured application error.
type Error struct {
	Code    string
	Status  int
	Message string
	Cause   error
}

// New creates a new Error.
func New(code string, status int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap returns the root cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As extracts an *Error if present.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	appErr := As(err)
	return appErr != nil && appErr.Code == code
}

// Unauthenticated covers a missing, expired or malformed token and vanished principals.
func Unauthenticated(message string, cause error) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message, cause)
}

// Unauthorized is an alias of Unauthenticated kept for HTTP-flavoured call sites.
func Unauthorized(message string, cause error) *Error {
	return Unauthenticated(message, cause)
}

// Forbidden reports a failed role or ownership check.
func Forbidden(message string, cause error) *Error {
	return New(CodeForbidden, http.StatusForbidden, message, cause)
}

// NotFound reports an absent resource or an identifier that does not parse.
func NotFound(message string, cause error) *Error {
	return New(CodeNotFound, http.StatusNotFound, message, cause)
}

// Validation reports a payload rejected by the validation gate.
func Validation(message string, cause error) *Error {
	return New(CodeValidation, http.StatusBadRequest, message, cause)
}

// BadRequest reports a request that could not be decoded.
func BadRequest(message string, cause error) *Error {
	return New(CodeBadRequest, http.StatusBadRequest, message, cause)
}

// Internal reports a store, transport or translation failure.
func Internal(message string, cause error) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message, cause)
}

// Unexpected is the taxonomy name for Internal.
func Unexpected(message string, cause error) *Error {
	return Internal(message, cause)
}

// RateLimited reports a throttled client.
func RateLimited(message string, cause error) *Error {
	return New(CodeRateLimited, http.StatusTooManyRequests, message, cause)
}

// PayloadTooLarge reports an oversized request body.
func PayloadTooLarge(message string, cause error) *Error {
	return New(CodeTooLarge, http.StatusRequestEntityTooLarge, message, cause)
}

// MethodNotAllowed reports a known path requested with the wrong method.
func MethodNotAllowed(message string) *Error {
	return New(CodeMethodNotAllowed, http.StatusMethodNotAllowed, message, nil)
}
