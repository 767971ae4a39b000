// Package ratelimit counts admissions per caller inside fixed windows.
//
// The first admission for a caller opens a window of the configured length;
// when the window expires the caller's count returns to zero. This is an
// approximation of a rolling hour, not a sliding log.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/ulule/limiter/v3"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Hour
)

var ErrClosed = errors.New("rate counter closed")

// Decision is the outcome of a single admission attempt.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// Counter admits or rejects a caller. A rejected attempt does not change the count.
type Counter interface {
	Admit(ctx context.Context, key string) (Decision, error)
	Close() error
}

func newRate(limit int, window time.Duration) limiter.Rate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return limiter.Rate{Period: window, Limit: int64(limit)}
}

// admit peeks first so an exhausted caller is rejected without touching the store.
func admit(ctx context.Context, l *limiter.Limiter, key string) (Decision, error) {
	limit := int(l.Rate.Limit)

	peek, err := l.Peek(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if peek.Remaining <= 0 {
		return rejected(peek, limit, limit), nil
	}

	got, err := l.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if got.Reached {
		// Lost a race with another admission for the same key.
		return rejected(got, limit, limit), nil
	}
	return Decision{Allowed: true, Count: limit - int(got.Remaining), Limit: limit}, nil
}

func rejected(lctx limiter.Context, count, limit int) Decision {
	return Decision{
		Allowed:    false,
		Count:      count,
		Limit:      limit,
		RetryAfter: retryAfter(lctx.Reset),
	}
}

// retryAfter converts the store's reset timestamp (unix seconds) into a wait of
// at least one second.
func retryAfter(reset int64) time.Duration {
	wait := time.Until(time.Unix(reset, 0))
	if wait < time.Second {
		return time.Second
	}
	return wait
}
