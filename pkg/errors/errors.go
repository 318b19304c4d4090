// Package errors carries typed API errors: a Code that decides the HTTP status
// and whether the message and details may reach the client.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeHospitalUnassigned Code = "HOSPITAL_UNASSIGNED"
	CodeResourceInvalid    Code = "RESOURCE_INVALID"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered. ExposeMessage lets the
// caller-supplied message replace PublicMessage in the response.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

const (
	retryable = 1 << iota
	details
	expose
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
		ExposeMessage:  flags&expose != 0,
	}
}

var registry = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", details|expose),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", expose),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", expose),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", expose),
	CodeConflict:           meta(http.StatusConflict, "conflict detected", expose),
	CodeStateConflict:      meta(http.StatusUnprocessableEntity, "state transition disallowed", details|expose),
	CodeHospitalUnassigned: meta(http.StatusForbidden, "user not assigned to a hospital", expose),
	CodeResourceInvalid:    meta(http.StatusUnprocessableEntity, "resource rejected", details|expose),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", details|expose),
	CodeRateLimit:          meta(http.StatusTooManyRequests, "rate limit exceeded", expose),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := registry[code]; ok {
		return m
	}
	return registry[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err as the cause. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(d any) *Error {
	if e != nil {
		e.details = d
	}
	return e
}

// PublicMessage is the text safe to show a client for this error.
func (e *Error) PublicMessage() string {
	m := MetadataFor(e.Code())
	if m.ExposeMessage && e.Message() != "" {
		return e.message
	}
	return m.PublicMessage
}

// PublicDetails returns the details only when the code allows them.
func (e *Error) PublicDetails() any {
	if !MetadataFor(e.Code()).DetailsAllowed {
		return nil
	}
	return e.Details()
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
