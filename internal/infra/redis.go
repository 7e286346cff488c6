package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the client used for idempotency keys, the login
// rate limit and the transaction history cache.
type RedisOptions struct {
	URL        string
	ClientName string
	PoolSize   int
}

// NewRedisClient parses a redis:// URL, applies the service settings and
// verifies connectivity.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.ClientName != "" {
		opt.ClientName = opts.ClientName
	}
	if opts.PoolSize > 0 {
		opt.PoolSize = opts.PoolSize
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	return client, nil
}
