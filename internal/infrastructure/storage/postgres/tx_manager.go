package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/tx"
	"buildledger/pkg/logger"
)

var tracer = otel.Tracer("buildledger/storage/postgres")

var _ tx.SnapshotManager = (*TxManager)(nil)

// Postgres error codes that make a whole unit safe to re-run.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// UnitOptions configures one unit of work.
type UnitOptions struct {
	Isolation        pgx.TxIsoLevel
	Access           pgx.TxAccessMode
	StatementTimeout time.Duration
	// Retries is how many times a unit aborted by a deadlock or a
	// serialization failure is re-run from the start.
	Retries int
}

func defaultUnitOptions() UnitOptions {
	return UnitOptions{
		Isolation:        pgx.ReadCommitted,
		Access:           pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
		Retries:          2,
	}
}

// TxManager maps ledger units of work onto pgx transactions. Row locks taken
// by the repositories (FOR UPDATE, conditional UPDATE) serialize competing
// postings on the same site, line, assignment or document.
type TxManager struct {
	pool *pgxpool.Pool
	opts UnitOptions
}

// NewTxManager creates a manager over pool with READ COMMITTED units.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, opts: defaultUnitOptions()}
}

// WithStatementTimeout sets SET LOCAL statement_timeout for every unit.
// Zero disables it.
func (m *TxManager) WithStatementTimeout(d time.Duration) *TxManager {
	m.opts.StatementTimeout = d
	return m
}

type txKey struct{}

// RunInTransaction runs fn in a read-write unit. After-commit hooks
// registered by fn run once the commit succeeded.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, m.opts, "ledger.unit", fn)
}

// ReadOnly runs fn in a REPEATABLE READ read-only unit so that aggregates
// computed by several queries agree with each other.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.opts
	opts.Isolation = pgx.RepeatableRead
	opts.Access = pgx.ReadOnly
	opts.Retries = 0
	return m.run(ctx, opts, "ledger.snapshot", fn)
}

func (m *TxManager) run(ctx context.Context, opts UnitOptions, name string, fn func(ctx context.Context) error) error {
	if m.current(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.isolation", string(opts.Isolation)),
		attribute.String("db.access", string(opts.Access)),
	))
	defer span.End()

	var err error
	for attempt := 0; ; attempt++ {
		err = m.once(ctx, opts, fn)
		if err == nil || attempt >= opts.Retries || !retryable(err) {
			break
		}
		logger.Warn(ctx, "unit aborted by concurrent writer, retrying", "attempt", attempt+1, "error", err)
	}
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "unit failed")
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTimeout("transaction", err)
	}
	return err
}

func (m *TxManager) once(ctx context.Context, opts UnitOptions, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.Isolation, AccessMode: opts.Access})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.StatementTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			m.rollback(ctx, pgTx, err)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	unitCtx, hooks := tx.WithHooks(context.WithValue(ctx, txKey{}, pgTx))
	if err := fn(unitCtx); err != nil {
		m.rollback(ctx, pgTx, err)
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	hooks.Run(ctx)
	return nil
}

// rollback must finish even when ctx is already cancelled.
func (m *TxManager) rollback(ctx context.Context, pgTx pgx.Tx, cause error) {
	if err := pgTx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Error(ctx, "rollback failed", "error", err, "cause", cause)
	}
}

func (m *TxManager) current(ctx context.Context) pgx.Tx {
	t, _ := ctx.Value(txKey{}).(pgx.Tx)
	return t
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// InTransaction reports whether ctx carries an open unit.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	return m.current(ctx) != nil
}

// Querier is the subset of pgx shared by a pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the unit's transaction, or the pool outside a unit.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.current(ctx); t != nil {
		return t
	}
	return m.pool
}
