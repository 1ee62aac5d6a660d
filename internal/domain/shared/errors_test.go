package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		kind ErrorKind
	}{
		{"validation", NewValidationError("INVALID_AMOUNT", "bad"), KindValidation},
		{"not found", NewNotFoundError("PAYMENT_NOT_FOUND", "missing"), KindNotFound},
		{"invariant", NewInvariantError("INVALID_TRANSITION", "nope"), KindDomainInvariant},
		{"concurrency", NewConcurrencyError("LOCK_TIMEOUT", "busy"), KindConcurrency},
		{"legacy constructor", NewDomainError("X", "y"), KindDomainInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			kind, ok := KindOf(wrapped)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("post: %w", ErrLockTimeout.WithCause(errors.New("deadline")))
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "deadline")
}

func TestKindOfInfrastructureError(t *testing.T) {
	_, ok := KindOf(errors.New("connection refused"))
	assert.False(t, ok)
	assert.False(t, IsRetryable(errors.New("connection refused")))
}
