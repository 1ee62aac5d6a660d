package lock

import (
	"context"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	backendRedis   = "redis"
	redisKeyPrefix = "lock:"
	defaultLockTTL = 30 * time.Second
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by someone else is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisClient is the part of redis.Cmdable the locker uses
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker serializes work across processes sharing one Redis.
// The lock expires after ttl even if the holder dies; ttl must outlive fn.
type RedisLocker struct {
	client RedisClient
	ttl    time.Duration
	opts   Options
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client RedisClient, ttl time.Duration, opts Options) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, opts: opts.withDefaults()}
}

// WithExclusiveLock implements shared.Locker
func (l *RedisLocker) WithExclusiveLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	acquireCtx, cancel := l.opts.acquireContext(ctx)
	defer cancel()

	start := time.Now()
	err := poll(acquireCtx, l.opts.RetryInterval, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	})
	l.opts.Metrics.RecordLockWait(ctx, backendRedis, time.Since(start), err == nil)
	if err != nil {
		return acquireFailure(acquireCtx, key, err)
	}

	defer func() {
		// Release even if ctx was cancelled while fn ran.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			l.opts.Logger.Warn("Failed to release redis lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}

var (
	_ shared.Locker = (*RedisLocker)(nil)
	_ RedisClient   = (redis.Cmdable)(nil)
)
