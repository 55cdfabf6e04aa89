package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/company"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	companyTable        = "company_account"
	companyEntriesTable = "company_entries"
	companyName         = "Company"
)

var (
	accountColumns      = postgres.Columns[company.Account]()
	companyEntryColumns = postgres.Columns[company.Entry]()
)

// CompanyRepo implements company.Repository over a single account row.
type CompanyRepo struct {
	postgres.Base
}

var _ company.Repository = (*CompanyRepo)(nil)

// NewCompanyRepo creates a company repository.
func NewCompanyRepo(txm *postgres.TxManager) *CompanyRepo {
	return &CompanyRepo{Base: postgres.NewBase(txm)}
}

func (r *CompanyRepo) Get(ctx context.Context) (*company.Account, error) {
	return r.load(ctx, false)
}

func (r *CompanyRepo) GetForUpdate(ctx context.Context) (*company.Account, error) {
	return r.load(ctx, true)
}

func (r *CompanyRepo) load(ctx context.Context, lock bool) (*company.Account, error) {
	_, err := r.Querier(ctx).Exec(ctx, `
		INSERT INTO company_account (id, name, total_amount, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (singleton) DO NOTHING
	`, id.New(), companyName, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure company account: %w", err)
	}

	var acc company.Account
	q := r.Builder().Select(accountColumns...).From(companyTable).Limit(1)
	if lock {
		q = postgres.ForUpdate(q)
	}
	if err := r.Base.Get(ctx, &acc, q, "company", companyName); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *CompanyRepo) Adjust(ctx context.Context, delta types.Money) (types.Money, error) {
	var total types.Money
	err := r.Querier(ctx).QueryRow(ctx, `
		UPDATE company_account SET total_amount = total_amount + $1, updated_at = NOW()
		RETURNING total_amount
	`, delta).Scan(&total)
	if err != nil {
		return types.Zero(), notFoundOr(err, "company", companyName)
	}
	return total, nil
}

func (r *CompanyRepo) SetTotal(ctx context.Context, total types.Money) error {
	_, err := r.Exec(ctx, r.Builder().Update(companyTable).
		Set("total_amount", total).
		Set("updated_at", squirrel.Expr("NOW()")))
	if err != nil {
		return fmt.Errorf("set company total: %w", err)
	}
	return nil
}

func (r *CompanyRepo) AppendEntry(ctx context.Context, e *company.Entry) error {
	err := r.Querier(ctx).QueryRow(ctx, `
		UPDATE company_account SET entry_seq = entry_seq + 1 RETURNING entry_seq
	`).Scan(&e.Seq)
	if err != nil {
		return notFoundOr(err, "company", companyName)
	}
	return r.Insert(ctx, companyEntriesTable, e)
}

func (r *CompanyRepo) ListEntries(ctx context.Context, filter company.EntryFilter) ([]*company.Entry, error) {
	q := r.Builder().Select(companyEntryColumns...).From(companyEntriesTable).OrderBy("seq")
	if filter.SiteID != nil {
		q = q.Where(squirrel.Eq{"site_id": *filter.SiteID})
	}
	var entries []*company.Entry
	if err := r.Select(ctx, &entries, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list company entries: %w", err)
	}
	return entries, nil
}

func (r *CompanyRepo) SumEntries(ctx context.Context) (types.Money, error) {
	var sum types.Money
	err := r.Querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE -amount END), 0)
		FROM company_entries
	`, company.TypeIncoming).Scan(&sum)
	if err != nil {
		return types.Zero(), fmt.Errorf("sum company entries: %w", err)
	}
	return sum, nil
}
