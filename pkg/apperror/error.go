package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error independently of its HTTP status.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindDuplicate    Kind = "DUPLICATE"
	KindNotFound     Kind = "NOT_FOUND"
	KindStoreFailure Kind = "STORE_FAILURE"
	KindAuthFailure  Kind = "AUTH_FAILURE"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

type AppError struct {
	Code    int         `json:"code"`
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForStatus(code),
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

// Validation carries per-field messages in Details.
func Validation(message string, details interface{}) *AppError {
	e := New(http.StatusBadRequest, message, nil)
	e.Details = details
	return e
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message, nil)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// StoreFailure reports a failed call to the relational or object store.
func StoreFailure(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	e.Kind = KindStoreFailure
	return e
}

// AuthFailure reports a failed call to the auth provider.
func AuthFailure(code int, message string, err error) *AppError {
	e := New(code, message, err)
	e.Kind = KindAuthFailure
	return e
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindDuplicate
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}
