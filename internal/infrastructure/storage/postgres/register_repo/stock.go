// Package register_repo provides the PostgreSQL stock register: stock lines,
// their movement log and transfer requests.
package register_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/stock"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	stockTable     = "stock"
	movementsTable = "stock_movements"
	transfersTable = "stock_transfers"
)

var (
	stockColumns    = postgres.Columns[stock.Stock]()
	movementColumns = postgres.Columns[stock.Movement]()
	transferColumns = postgres.Columns[stock.Transfer]()
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	postgres.Base
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{Base: postgres.NewBase(txm)}
}

func (r *StockRepo) GetByID(ctx context.Context, stockID id.ID) (*stock.Stock, error) {
	var s stock.Stock
	q := r.Builder().Select(stockColumns...).From(stockTable).Where(squirrel.Eq{"id": stockID})
	if err := r.Get(ctx, &s, q, "stock", stockID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) ([]*stock.Stock, error) {
	q := r.Builder().Select(stockColumns...).From(stockTable).OrderBy("name", "id")
	switch {
	case filter.PoolOnly:
		q = q.Where(squirrel.Eq{"site_id": nil})
	case filter.SiteID != nil:
		q = q.Where(squirrel.Eq{"site_id": *filter.SiteID})
	}
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	var out []*stock.Stock
	if err := r.Select(ctx, &out, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return out, nil
}

// CreditLine upserts the line for (site, identity). An existing line keeps
// its unit cost unless it was zero.
func (r *StockRepo) CreditLine(ctx context.Context, siteID *id.ID, ident stock.Identity, unitCost types.Money, qty types.Quantity) (*stock.Stock, error) {
	now := time.Now().UTC()
	q := r.Builder().Insert(stockTable).
		Columns("id", "site_id", "name", "category", "unit", "quantity", "unit_cost", "created_at", "updated_at").
		Values(id.New(), siteID, ident.Name, ident.Category, ident.Unit, qty, unitCost, now, now).
		Suffix(`ON CONFLICT ((COALESCE(site_id, '00000000-0000-0000-0000-000000000000'::uuid)), name, category, unit)
			DO UPDATE SET
				quantity   = stock.quantity + EXCLUDED.quantity,
				unit_cost  = CASE WHEN stock.unit_cost = 0 THEN EXCLUDED.unit_cost ELSE stock.unit_cost END,
				updated_at = EXCLUDED.updated_at`).
		Suffix("RETURNING " + strings.Join(stockColumns, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build credit: %w", err)
	}
	var line stock.Stock
	if err := pgxscan.Get(ctx, r.Querier(ctx), &line, sql, args...); err != nil {
		if postgres.IsOutOfRange(err) {
			return nil, stock.QuantityOverflow(ident, qty)
		}
		return nil, fmt.Errorf("credit stock line: %w", err)
	}
	return &line, nil
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, stockID id.ID, qty types.Quantity) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Update(stockTable).
		Set("quantity", squirrel.Expr("quantity - ?", qty)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": stockID}).
		Where(squirrel.GtOrEq{"quantity": qty}))
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, stockID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *StockRepo) AppendMovement(ctx context.Context, m *stock.Movement) error {
	return r.Insert(ctx, movementsTable, m)
}

func (r *StockRepo) ListMovements(ctx context.Context, stockID id.ID, limit int) ([]*stock.Movement, error) {
	q := r.Builder().Select(movementColumns...).From(movementsTable).
		Where(squirrel.Eq{"stock_id": stockID}).
		OrderBy("created_at", "id")
	var out []*stock.Movement
	if err := r.Select(ctx, &out, postgres.Page(q, limit, 0)); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

func (r *StockRepo) IdentityTotals(ctx context.Context, ident stock.Identity) (stock.Totals, error) {
	var t stock.Totals
	err := r.Querier(ctx).QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(quantity) FROM stock s
			          WHERE s.name = $1 AND s.category = $2 AND s.unit = $3), 0),
			COALESCE(SUM(m.quantity) FILTER (WHERE m.kind = $4), 0),
			COALESCE(SUM(m.quantity) FILTER (WHERE m.kind = $5), 0)
		FROM stock_movements m
		JOIN stock s ON s.id = m.stock_id
		WHERE s.name = $1 AND s.category = $2 AND s.unit = $3
	`, ident.Name, ident.Category, ident.Unit, stock.MovementReceipt, stock.MovementConsumption).
		Scan(&t.OnHand, &t.Received, &t.Consumed)
	if err != nil {
		return stock.Totals{}, fmt.Errorf("identity totals: %w", err)
	}
	return t, nil
}

func (r *StockRepo) CreateTransfer(ctx context.Context, t *stock.Transfer) error {
	err := r.Insert(ctx, transfersTable, t)
	if postgres.IsUniqueViolation(err, "stock_transfers_number_key") {
		return apperror.NewDuplicate("transfer", "number", t.Number)
	}
	return err
}

func (r *StockRepo) GetTransfer(ctx context.Context, transferID id.ID) (*stock.Transfer, error) {
	var t stock.Transfer
	q := r.Builder().Select(transferColumns...).From(transfersTable).Where(squirrel.Eq{"id": transferID})
	if err := r.Get(ctx, &t, q, "transfer", transferID); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTransfer is the decide-once guard: the status predicate lets only
// one decision through.
func (r *StockRepo) CompleteTransfer(ctx context.Context, transferID id.ID, c stock.Completion) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Update(transfersTable).
		Set("status", c.Status).
		Set("decided_by", c.DecidedBy).
		Set("decided_at", c.DecidedAt).
		Set("dest_stock_id", c.DestStockID).
		Set("decision_note", c.Note).
		Where(squirrel.Eq{"id": transferID, "status": stock.TransferRequested}))
	if err != nil {
		return false, fmt.Errorf("complete transfer: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetTransfer(ctx, transferID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *StockRepo) ListTransfers(ctx context.Context, filter stock.TransferFilter) ([]*stock.Transfer, error) {
	q := r.Builder().Select(transferColumns...).From(transfersTable).OrderBy("created_at DESC", "id DESC")
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SiteID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_site_id": *filter.SiteID},
			squirrel.Eq{"to_site_id": *filter.SiteID},
		})
	}
	var out []*stock.Transfer
	if err := r.Select(ctx, &out, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}
