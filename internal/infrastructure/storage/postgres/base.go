package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"buildledger/internal/core/apperror"
)

// Base carries what every repository needs: the transaction manager that
// resolves the querier for ctx and a Dollar-placeholder squirrel builder.
type Base struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewBase creates a Base.
func NewBase(txm *TxManager) Base {
	return Base{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Builder returns the statement builder.
func (b Base) Builder() squirrel.StatementBuilderType {
	return b.builder
}

// Querier returns the transaction in ctx or the pool.
func (b Base) Querier(ctx context.Context) Querier {
	return b.txm.GetQuerier(ctx)
}

// Get scans one row into dst. A missing row becomes NotFound for entity/key.
func (b Base) Get(ctx context.Context, dst any, q squirrel.Sqlizer, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, b.Querier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, key)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

// Select scans all rows into dst.
func (b Base) Select(ctx context.Context, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, b.Querier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

// Exec runs a statement and returns the affected row count.
func (b Base) Exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := b.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Insert writes v's tagged columns into table.
func (b Base) Insert(ctx context.Context, table string, v any) error {
	if _, err := b.Exec(ctx, b.builder.Insert(table).SetMap(Row(v))); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// ForUpdate appends a row lock to a select.
func ForUpdate(q squirrel.SelectBuilder) squirrel.SelectBuilder {
	return q.Suffix("FOR UPDATE")
}

// Page applies limit and offset when set.
func Page(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

// IsUniqueViolation reports a 23505 error, optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsOutOfRange reports a 22003 error (numeric value out of range).
func IsOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}
