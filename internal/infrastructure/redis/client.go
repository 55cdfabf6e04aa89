// Package redis holds the Redis-backed infrastructure: the client, the
// distributed locker and the notification fan-out channel.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"buildledger/pkg/logger"
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Connect creates a client and pings it, retrying with capped exponential
// backoff until ctx is done.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 100
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Info(ctx, "connected to redis", "addr", cfg.Addr, "attempt", attempt)
			return client, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.Warn(ctx, "redis ping failed", "addr", cfg.Addr, "attempt", attempt, "retry_in", sleep, "error", err)

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
		case <-time.After(sleep):
		}
	}
}
