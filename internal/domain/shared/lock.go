package shared

import "context"

// Locker serializes work on a named resource.
//
// WithExclusiveLock runs fn while holding the lock for key. If the lock cannot
// be acquired before ctx is done or the implementation's bounded wait elapses,
// fn is not called and ErrLockTimeout (retryable) is returned.
type Locker interface {
	WithExclusiveLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
