package dto

import (
	"errors"
	"net/http"

	"github.com/garage-erp/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes
// (PAYMENT_FULLY_ALLOCATED, LOCK_TIMEOUT, ...).
const (
	// ErrCodeInternal is returned for any non-domain error
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the body cannot be decoded
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeValidation is used when binding tags reject the request
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	// ErrCodeIdempotencyKeyInvalid is used for an oversized Idempotency-Key
	ErrCodeIdempotencyKeyInvalid = "INVALID_IDEMPOTENCY_KEY"
	// ErrCodeIdempotencyInProgress is used while the first request with a key runs
	ErrCodeIdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"
	// ErrCodeIdempotencyKeyReused is used when a key is replayed with another body
	ErrCodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
)

// ErrorKindHTTPStatus maps a domain error kind to an HTTP status
var ErrorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:      http.StatusBadRequest,
	shared.KindNotFound:        http.StatusNotFound,
	shared.KindDomainInvariant: http.StatusUnprocessableEntity,
	shared.KindConcurrency:     http.StatusConflict,
}

// GetHTTPStatus returns the status for a kind, 500 when unknown
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := ErrorKindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponseFor converts err into a status and envelope. Only domain
// errors expose their code and message; everything else becomes a generic
// INTERNAL_ERROR. The boolean is false in that case so callers can log it.
func ErrorResponseFor(err error, requestID string) (int, Response, bool) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID),
			false
	}
	resp := NewErrorResponseWithRequestID(de.Code, de.Message, requestID)
	resp.Error.Retryable = de.Retryable
	return GetHTTPStatus(de.Kind), resp, true
}
