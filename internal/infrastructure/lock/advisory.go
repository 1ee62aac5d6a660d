package lock

import (
	"context"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const backendDatabase = "database"

// AdvisoryLocker serializes work with PostgreSQL session advisory locks.
// The lock lives on a dedicated connection, separate from the one used by the
// transaction inside fn. Waiters hold no connection between attempts, so a
// queue of waiters cannot starve the holder's transaction of the pool.
type AdvisoryLocker struct {
	db   *gorm.DB
	opts Options
}

// NewAdvisoryLocker creates a new AdvisoryLocker
func NewAdvisoryLocker(db *gorm.DB, opts Options) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, opts: opts.withDefaults()}
}

// WithExclusiveLock implements shared.Locker
func (l *AdvisoryLocker) WithExclusiveLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	acquireCtx, cancel := l.opts.acquireContext(ctx)
	defer cancel()

	start := time.Now()
	var fnErr error
	err := poll(acquireCtx, l.opts.RetryInterval, func(attemptCtx context.Context) (bool, error) {
		acquired := false
		err := l.db.WithContext(attemptCtx).Connection(func(conn *gorm.DB) error {
			if err := conn.Raw("SELECT pg_try_advisory_lock(hashtext(?))", key).Scan(&acquired).Error; err != nil {
				return err
			}
			if !acquired {
				return nil
			}
			l.opts.Metrics.RecordLockWait(ctx, backendDatabase, time.Since(start), true)

			defer func() {
				var released bool
				err := conn.WithContext(context.WithoutCancel(ctx)).
					Raw("SELECT pg_advisory_unlock(hashtext(?))", key).Scan(&released).Error
				if err != nil || !released {
					l.opts.Logger.Warn("Failed to release advisory lock", zap.String("key", key), zap.Error(err))
				}
			}()
			fnErr = fn(ctx)
			return nil
		})
		return acquired, err
	})
	if err != nil {
		l.opts.Metrics.RecordLockWait(ctx, backendDatabase, time.Since(start), false)
		return acquireFailure(acquireCtx, key, err)
	}
	return fnErr
}

var _ shared.Locker = (*AdvisoryLocker)(nil)
