// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buildledger/pkg/logger"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolConfig returns the pool settings used unless DB_MAX_CONNS says
// otherwise.
func DefaultPoolConfig(dsn string, maxConns int32) PoolConfig {
	if maxConns <= 0 {
		maxConns = 25
	}
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          maxConns,
		MinConns:          min(5, maxConns),
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// Pool wraps pgxpool.Pool to provide a clean interface.
type Pool struct {
	*pgxpool.Pool
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// NewPool opens the pool and waits for the database to answer, retrying
// the ping with capped backoff until ctx is done.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET application_name = 'buildledger'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err := pool.Ping(ctx)
		if err == nil {
			logger.Info(ctx, "connected to postgres", "max_conns", cfg.MaxConns, "attempt", attempt)
			return &Pool{Pool: pool}, nil
		}
		wait := min(time.Duration(attempt)*time.Second, 10*time.Second)
		logger.Warn(ctx, "postgres ping failed", "attempt", attempt, "retry_in", wait, "error", err)

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		case <-time.After(wait):
		}
	}
}

// LogStats logs connection usage. The worker calls it on its cleanup tick.
func (p *Pool) LogStats(ctx context.Context) {
	st := p.Stat()
	logger.Info(ctx, "database pool stats",
		"total", st.TotalConns(),
		"acquired", st.AcquiredConns(),
		"idle", st.IdleConns(),
		"max", st.MaxConns(),
		"acquire_count", st.AcquireCount(),
		"acquire_wait", st.AcquireDuration(),
	)
}
