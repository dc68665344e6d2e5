// Package apperr defines the typed error hierarchy returned by every outbound
// call of the carpool client.
//
// # Overview
//
// Each failure carries a machine-checkable Code, a Severity and a retryability
// flag so that callers can render a user-appropriate message and decide
// whether to offer "retry". The concrete kinds are:
//
//   - *NetworkError        transport failure, high, retryable
//   - *TimeoutError        bounded wait exceeded (a NetworkError), retryable
//   - *ValidationError     input rejected, medium, carries the field name
//   - *AuthenticationError session invalid, high
//   - *AuthorizationError  permission denied, high
//   - *APIError            any other HTTP failure, carries status and endpoint
//   - *Base                generic error, used for UNKNOWN_ERROR
//
// All of them satisfy AppError. Match the base with As (or errors.As with an
// AppError target) and a concrete kind with errors.As:
//
//	var vErr *apperr.ValidationError
//	if errors.As(err, &vErr) {
//	    showInline(vErr.Field, vErr.Error())
//	}
//
// Severity and retryability are fixed at construction; there are no setters.
package apperr

import (
	"errors"
	"maps"
)

// Severity ranks how disruptive an error is for the user.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Code is the symbolic identifier of an error condition.
type Code string

const (
	CodeNetwork          Code = "NETWORK_ERROR"
	CodeTimeout          Code = "TIMEOUT_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeAuthentication   Code = "AUTHENTICATION_ERROR"
	CodeAuthorization    Code = "AUTHORIZATION_ERROR"
	CodeAPI              Code = "API_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeRateLimit        Code = "RATE_LIMIT"
	CodeServer           Code = "SERVER_ERROR"
	CodeRequestCancelled Code = "REQUEST_CANCELLED"
	CodeUnknown          Code = "UNKNOWN_ERROR"
)

// Well-known Details keys.
const (
	DetailField      = "field"
	DetailRetryAfter = "retryAfter"
	DetailStatus     = "status"
	DetailEndpoint   = "endpoint"
	DetailTimeout    = "timeout"
)

// Details is a free-form diagnostic bag. It may be empty.
type Details map[string]any

// AppError is implemented by every error kind in this package.
type AppError interface {
	error
	Code() Code
	Severity() Severity
	Retryable() bool
	// Details returns a copy of the diagnostic bag; nil when empty.
	Details() Details
	Unwrap() error
}

// Base carries the state shared by all kinds. It is also the generic AppError
// returned for conditions that fit no specific kind.
type Base struct {
	message   string
	code      Code
	severity  Severity
	retryable bool
	details   Details
	cause     error
}

var _ AppError = (*Base)(nil)

func newBase(message, fallback string, code Code, severity Severity, retryable bool, details Details, cause error) Base {
	if message == "" {
		message = fallback
	}
	var d Details
	if len(details) > 0 {
		d = maps.Clone(details)
	}
	return Base{
		message:   message,
		code:      code,
		severity:  severity,
		retryable: retryable,
		details:   d,
		cause:     cause,
	}
}

// New returns a generic AppError. It is conservative: medium severity and
// never retryable.
func New(code Code, message string, cause error) *Base {
	if code == "" {
		code = CodeUnknown
	}
	b := newBase(message, "An unexpected error occurred", code, SeverityMedium, false, nil, cause)
	return &b
}

// Unknown wraps cause as an UNKNOWN_ERROR.
func Unknown(cause error) *Base {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return New(CodeUnknown, msg, cause)
}

func (b *Base) Error() string      { return b.message }
func (b *Base) Code() Code         { return b.code }
func (b *Base) Severity() Severity { return b.severity }
func (b *Base) Retryable() bool    { return b.retryable }
func (b *Base) Unwrap() error      { return b.cause }

func (b *Base) Details() Details {
	if len(b.details) == 0 {
		return nil
	}
	return maps.Clone(b.details)
}

// Detail returns a single Details value.
func (b *Base) Detail(key string) (any, bool) {
	v, ok := b.details[key]
	return v, ok
}

// As finds the first AppError in err's chain.
func As(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is an AppError flagged as retryable.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Retryable()
}

// CodeOf returns the Code of the first AppError in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code()
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code() == code
}
