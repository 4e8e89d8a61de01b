// Package errs provides structured, user-friendly errors with machine-parseable codes.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-parseable error identifier.
type ErrorCode string

const (
	// General
	ErrInternal   ErrorCode = "ERR-001"
	ErrConfig     ErrorCode = "ERR-002"
	ErrValidation ErrorCode = "ERR-003"

	// Configuration errors
	ErrCredentialsMissing ErrorCode = "ERR-CFG-001"
	ErrPortalURL          ErrorCode = "ERR-CFG-002"
	ErrIdentity           ErrorCode = "ERR-CFG-003"

	// Transport errors
	ErrTransport ErrorCode = "ERR-NET-001"
	ErrTimeout   ErrorCode = "ERR-NET-002"

	// Portal errors
	ErrRejected        ErrorCode = "ERR-PORTAL-001"
	ErrMalformed       ErrorCode = "ERR-PORTAL-002"
	ErrUnexpectedCode  ErrorCode = "ERR-PORTAL-003"
	ErrLoginInProgress ErrorCode = "ERR-PORTAL-004"

	// State errors
	ErrStateRead  ErrorCode = "ERR-STATE-001"
	ErrStateWrite ErrorCode = "ERR-STATE-002"
)

// PortalError is the standard structured error type used across all eportal packages.
type PortalError struct {
	Code     ErrorCode // Machine-parseable error code
	Op       string    // Operation chain, e.g., "portal.login.attempt"
	Resource string    // Resource identifier (portal URL, config key, ...)
	Class    string    // errclass label for network failures (ETIMEDOUT, ...)
	Cause    error     // Wrapped upstream error
	Advice   string    // Human-readable remediation hint
}

func (e *PortalError) Error() string {
	cause := "<nil>"
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	if e.Class != "" {
		cause = e.Class + ": " + cause
	}
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Code, e.Op, e.Resource, cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Op, cause)
}

func (e *PortalError) Unwrap() error {
	return e.Cause
}

// New creates a new PortalError.
func New(code ErrorCode, op string, cause error) *PortalError {
	return &PortalError{Code: code, Op: op, Cause: cause}
}

// Newf creates a new PortalError with a formatted message as the cause.
func Newf(code ErrorCode, op, format string, args ...any) *PortalError {
	return &PortalError{Code: code, Op: op, Cause: fmt.Errorf(format, args...)}
}

// WithResource sets the resource identifier on a PortalError.
func (e *PortalError) WithResource(res string) *PortalError {
	e.Resource = res
	return e
}

// WithClass sets the network error classification label.
func (e *PortalError) WithClass(class string) *PortalError {
	e.Class = class
	return e
}

// WithAdvice sets the human-readable remediation hint on a PortalError.
func (e *PortalError) WithAdvice(advice string) *PortalError {
	e.Advice = advice
	return e
}

// Wrap wraps an existing error as a PortalError at a new operation boundary.
func Wrap(err error, code ErrorCode, op string) *PortalError {
	if err == nil {
		return nil
	}
	return &PortalError{Code: code, Op: op, Cause: err}
}

// IsCode reports whether err is a PortalError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// AsPortal extracts the *PortalError from err, or returns nil.
func AsPortal(err error) *PortalError {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsConfig reports whether err belongs to the configuration class, which is
// surfaced to callers instead of being retried.
func IsConfig(err error) bool {
	pe := AsPortal(err)
	if pe == nil {
		return false
	}
	switch pe.Code {
	case ErrConfig, ErrCredentialsMissing, ErrPortalURL, ErrIdentity:
		return true
	}
	return false
}
