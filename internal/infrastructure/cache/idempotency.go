// Package cache keeps short-lived request state shared by server processes.
package cache

import (
	"context"
	"time"
)

// StoredResponse is a completed response kept for replay
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// Fingerprint identifies the request that produced the response, so a
	// reused key with a different body can be rejected.
	Fingerprint string `json:"fingerprint"`
}

// IdempotencyStore reserves idempotency keys and remembers the response of
// the request that completed under each key.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It reports false when the key is already
	// reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Complete stores resp under key for ttl
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	// Lookup returns the completed response for key. found is true while the
	// key is reserved even if no response is stored yet.
	Lookup(ctx context.Context, key string) (resp *StoredResponse, found bool, err error)
	// Release drops a reservation so the request may be retried
	Release(ctx context.Context, key string) error
	Close() error
}
