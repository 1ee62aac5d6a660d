package lock

import (
	"testing"
	"time"

	"github.com/garage-erp/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := config.LockConfig{AcquireTimeout: time.Second, TTL: 5 * time.Second, RetryInterval: 10 * time.Millisecond}

	t.Run("memory", func(t *testing.T) {
		cfg := cfg
		cfg.Backend = config.LockBackendMemory
		l, err := New(cfg, nil, nil, Options{})
		require.NoError(t, err)
		m, ok := l.(*MemoryLocker)
		require.True(t, ok)
		assert.Equal(t, time.Second, m.opts.AcquireTimeout)
	})

	t.Run("redis needs a client", func(t *testing.T) {
		cfg := cfg
		cfg.Backend = config.LockBackendRedis
		_, err := New(cfg, nil, nil, Options{})
		assert.Error(t, err)
	})

	t.Run("database needs a db", func(t *testing.T) {
		cfg := cfg
		cfg.Backend = config.LockBackendDatabase
		_, err := New(cfg, nil, nil, Options{})
		assert.Error(t, err)

		db, _ := newMockGorm(t)
		l, err := New(cfg, db, nil, Options{})
		require.NoError(t, err)
		assert.IsType(t, &AdvisoryLocker{}, l)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := cfg
		cfg.Backend = "zookeeper"
		_, err := New(cfg, nil, nil, Options{})
		assert.Error(t, err)
	})
}
