package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers and transport layers
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindDomainInvariant ErrorKind = "domain_invariant"
	KindConcurrency     ErrorKind = "concurrency"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind      ErrorKind `json:"kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of the error carrying cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// NewDomainError creates a new domain invariant error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindDomainInvariant,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed or out-of-range input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates an error for a missing or out-of-scope entity
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewInvariantError creates an error for an illegal state transition
func NewInvariantError(code, message string) *DomainError {
	return &DomainError{Kind: KindDomainInvariant, Code: code, Message: message}
}

// NewConcurrencyError creates a retryable contention error
func NewConcurrencyError(code, message string) *DomainError {
	return &DomainError{Kind: KindConcurrency, Code: code, Message: message, Retryable: true}
}

// KindOf returns the kind of the first DomainError in err's chain.
// The second return value is false for non-domain (infrastructure) errors.
func KindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsRetryable reports whether the caller should retry the whole operation
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConcurrencyError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrLockTimeout         = NewConcurrencyError("LOCK_TIMEOUT", "Could not acquire lock in time, retry the operation")
	ErrInvalidState        = NewInvariantError("INVALID_STATE", "Operation not allowed in current state")
)
