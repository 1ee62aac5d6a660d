package lock

import (
	"context"
	"sync"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
)

const backendMemory = "memory"

// MemoryLocker serializes work inside one process. It cannot protect a
// chain shared by several processes.
type MemoryLocker struct {
	opts Options

	mu    sync.Mutex
	slots map[string]*memorySlot
}

type memorySlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new MemoryLocker
func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		opts:  opts.withDefaults(),
		slots: make(map[string]*memorySlot),
	}
}

func (l *MemoryLocker) acquireSlot(key string) *memorySlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &memorySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) releaseSlot(key string, s *memorySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// WithExclusiveLock implements shared.Locker
func (l *MemoryLocker) WithExclusiveLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	slot := l.acquireSlot(key)
	defer l.releaseSlot(key, slot)

	acquireCtx, cancel := l.opts.acquireContext(ctx)
	defer cancel()

	start := time.Now()
	select {
	case slot.ch <- struct{}{}:
	case <-acquireCtx.Done():
		l.opts.Metrics.RecordLockWait(ctx, backendMemory, time.Since(start), false)
		return acquireFailure(acquireCtx, key, acquireCtx.Err())
	}
	l.opts.Metrics.RecordLockWait(ctx, backendMemory, time.Since(start), true)
	defer func() { <-slot.ch }()

	return fn(ctx)
}

// held reports how many keys currently have holders or waiters
func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ shared.Locker = (*MemoryLocker)(nil)
