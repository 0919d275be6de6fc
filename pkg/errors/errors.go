package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Delivery transport errors. Workers branch on these two classes: transient
// failures are retried with backoff, permanent ones short-circuit the retry
// loop (and for push, disable the device registration).

// TransportError wraps a failure returned by an external delivery transport.
type TransportError struct {
	Permanent bool
	Msg       string
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func Transient(msg string, err error) *TransportError {
	return &TransportError{Permanent: false, Msg: msg, Err: err}
}

func Permanent(msg string, err error) *TransportError {
	return &TransportError{Permanent: true, Msg: msg, Err: err}
}

// IsPermanent reports whether err (anywhere in its chain) is a permanent
// transport failure that must not be retried.
func IsPermanent(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Permanent
	}
	return false
}
