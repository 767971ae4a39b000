package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Memory is an in-process Counter. Expired windows are swept by the store's
// cleaner, so no work is scheduled per request.
type Memory struct {
	mu      sync.Mutex
	limiter *limiter.Limiter
	closed  bool
}

func NewMemory(limit int, window time.Duration) *Memory {
	rate := newRate(limit, window)
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "kcompile",
		CleanUpInterval: rate.Period,
	})
	return &Memory{limiter: limiter.New(store, rate)}
}

func (m *Memory) Admit(ctx context.Context, key string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	// Peek and Get run under one lock so concurrent callers cannot overshoot.
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Decision{}, ErrClosed
	}
	return admit(ctx, m.limiter, key)
}

// Close makes further admissions fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
