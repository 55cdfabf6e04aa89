package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"buildledger/internal/config"
	"buildledger/internal/core/lock"
	"buildledger/internal/infrastructure/redis"
	"buildledger/internal/infrastructure/storage/postgres"
	"buildledger/pkg/logger"
)

// Runtime holds the connections a process opens from its configuration.
type Runtime struct {
	Config  *config.Config
	Storage *Storage

	// Pool and TxManager are nil under the memory driver.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	// Redis is nil unless REDIS_ADDRESS is set.
	Redis *goredis.Client
}

// Open connects storage and, when configured, Redis.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		rt.Storage, _ = MemoryStorage(cfg.IdempotencyTTL)
		logger.Warn(ctx, "using in-memory storage; data is lost on exit")
	default:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, cfg.DBMaxConns))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.Pool = pool
		rt.TxManager = postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)
		rt.Storage = PostgresStorage(rt.TxManager, cfg.IdempotencyTTL)
	}

	if cfg.RedisEnabled() {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.Redis = rdb
	}
	return rt, nil
}

// Locker returns the distributed locker when Redis is available and an
// in-process one otherwise.
func (rt *Runtime) Locker() lock.Locker {
	if rt.Redis != nil {
		return redis.NewLocker(rt.Redis)
	}
	return lock.NewLocal()
}

// Options returns service options from configuration. The caller sets
// Publisher.
func (rt *Runtime) Options() Options {
	return Options{
		Locker:        rt.Locker(),
		LockTTL:       rt.Config.LockTTL,
		NotifyTimeout: rt.Config.NotifyTimeout,
		BudgetRule:    rt.Config.BudgetAlertRule,
	}
}

// Close releases every connection.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			logger.Warn(context.Background(), "close redis", "error", err)
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
