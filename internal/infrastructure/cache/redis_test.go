package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps string keys in memory and understands the release script
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	}
	return ""
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = asString(value)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = asString(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if script != releaseScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	if f.values[keys[0]] == asString(args[0]) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	s := NewRedisIdempotencyStore(client, "")

	ok, err := s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pendingMarker, client.values["idempotency:k1"])
	assert.Equal(t, time.Minute, client.ttls["idempotency:k1"])

	ok, err = s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	resp, found, err := s.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, resp)

	require.NoError(t, s.Complete(ctx, "k1", StoredResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"a":1}`), Fingerprint: "fp"}, time.Hour))
	assert.Equal(t, time.Hour, client.ttls["idempotency:k1"])

	require.NoError(t, s.Release(ctx, "k1"))
	resp, found, err = s.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found, "release keeps completed responses")
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, `{"a":1}`, string(resp.Body))
	assert.Equal(t, "fp", resp.Fingerprint)
}

func TestRedisIdempotencyStore_ReleasePending(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	s := NewRedisIdempotencyStore(client, "test:")

	_, _ = s.Reserve(ctx, "k", time.Minute)
	require.NoError(t, s.Release(ctx, "k"))
	_, found, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIdempotencyStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("backend failure is wrapped", func(t *testing.T) {
		client := newFakeRedis()
		client.err = errors.New("connection refused")
		s := NewRedisIdempotencyStore(client, "")

		_, err := s.Reserve(ctx, "k", time.Minute)
		assert.ErrorContains(t, err, "connection refused")
		_, _, err = s.Lookup(ctx, "k")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("corrupt payload", func(t *testing.T) {
		client := newFakeRedis()
		client.values["idempotency:k"] = "{not json"
		s := NewRedisIdempotencyStore(client, "")

		_, _, err := s.Lookup(ctx, "k")
		assert.ErrorContains(t, err, "decode")
	})
}
