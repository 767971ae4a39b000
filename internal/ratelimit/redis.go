package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"kcompile/backend/internal/hashutil"
)

const (
	defaultKeyPrefix = "kcompile:ratelimit"
	callerDigestLen  = 32
)

// Redis keeps counters in Redis keys that expire with the window, so several
// relay instances share one budget per caller. Two instances racing on the
// same caller's last slot may both increment; only one is admitted.
type Redis struct {
	rdb       redis.UniversalClient
	limiter   *limiter.Limiter
	ownClient bool
}

type redisOptions struct {
	prefix string
}

type RedisOption func(*redisOptions)

func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) { o.prefix = strings.Trim(prefix, ":") }
}

func NewRedis(rdb redis.UniversalClient, limit int, window time.Duration, opts ...RedisOption) (*Redis, error) {
	o := redisOptions{prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix:   o.prefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis limiter store: %w", err)
	}
	return &Redis{rdb: rdb, limiter: limiter.New(store, newRate(limit, window))}, nil
}

// NewRedisFromURL dials redis://... and owns the resulting client.
func NewRedisFromURL(ctx context.Context, rawURL string, limit int, window time.Duration, opts ...RedisOption) (*Redis, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	r, err := NewRedis(client, limit, window, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	r.ownClient = true
	return r, nil
}

// Admit hashes the caller so raw client addresses are not stored in a shared Redis.
func (r *Redis) Admit(ctx context.Context, key string) (Decision, error) {
	d, err := admit(ctx, r.limiter, hashutil.Digest(key, callerDigestLen))
	if err != nil {
		return Decision{}, fmt.Errorf("admit %s: %w", key, err)
	}
	return d, nil
}

func (r *Redis) Close() error {
	if r.ownClient {
		return r.rdb.Close()
	}
	return nil
}
