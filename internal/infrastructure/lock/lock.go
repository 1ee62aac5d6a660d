// Package lock provides shared.Locker implementations that serialize work on
// a named resource, such as the head of a fiscal chain.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/config"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options are shared by every backend
type Options struct {
	// AcquireTimeout bounds the wait for the lock. Zero waits until ctx is done.
	AcquireTimeout time.Duration
	// RetryInterval is the pause between attempts for polling backends.
	RetryInterval time.Duration
	Metrics       *telemetry.CoreMetrics
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RetryInterval <= 0 {
		o.RetryInterval = 25 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// acquireContext derives the context that bounds one acquisition
func (o Options) acquireContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.AcquireTimeout > 0 {
		return context.WithTimeout(ctx, o.AcquireTimeout)
	}
	return context.WithCancel(ctx)
}

// acquireFailure turns a failed acquisition into the retryable lock timeout
// once the acquire context is done. Backend errors pass through.
func acquireFailure(acquireCtx context.Context, key string, err error) error {
	if acquireCtx.Err() != nil {
		return shared.ErrLockTimeout.WithCause(fmt.Errorf("lock %q: %w", key, err))
	}
	return err
}

// poll calls try until it reports the lock as taken or ctx is done
func poll(ctx context.Context, interval time.Duration, try func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// New builds the locker selected by cfg.Backend. redisClient is only used by
// the redis backend and db only by the database backend.
func New(cfg config.LockConfig, db *gorm.DB, redisClient redis.Cmdable, opts Options) (shared.Locker, error) {
	opts.AcquireTimeout = cfg.AcquireTimeout
	opts.RetryInterval = cfg.RetryInterval
	switch cfg.Backend {
	case config.LockBackendMemory:
		return NewMemoryLocker(opts), nil
	case config.LockBackendRedis:
		if redisClient == nil {
			return nil, errors.New("lock: redis backend requires a redis client")
		}
		return NewRedisLocker(redisClient, cfg.TTL, opts), nil
	case config.LockBackendDatabase:
		if db == nil {
			return nil, errors.New("lock: database backend requires a database")
		}
		return NewAdvisoryLocker(db, opts), nil
	default:
		return nil, fmt.Errorf("lock: unknown backend %q", cfg.Backend)
	}
}
