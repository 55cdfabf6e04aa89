// Package ledger_repo provides PostgreSQL repositories for the money ledgers:
// sites, the company account, contractor accounts and wages.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	sitesTable       = "sites"
	siteEntriesTable = "site_entries"
)

var (
	siteColumns  = postgres.Columns[siteledger.Site]()
	entryColumns = postgres.Columns[siteledger.Entry]()
)

// SiteRepo implements siteledger.Repository.
type SiteRepo struct {
	postgres.Base
}

var _ siteledger.Repository = (*SiteRepo)(nil)

// NewSiteRepo creates a site repository.
func NewSiteRepo(txm *postgres.TxManager) *SiteRepo {
	return &SiteRepo{Base: postgres.NewBase(txm)}
}

func (r *SiteRepo) Create(ctx context.Context, site *siteledger.Site) error {
	return r.Insert(ctx, sitesTable, site)
}

func (r *SiteRepo) selectSite() squirrel.SelectBuilder {
	return r.Builder().Select(siteColumns...).From(sitesTable)
}

func (r *SiteRepo) GetByID(ctx context.Context, siteID id.ID) (*siteledger.Site, error) {
	var site siteledger.Site
	if err := r.Get(ctx, &site, r.selectSite().Where(squirrel.Eq{"id": siteID}), "site", siteID); err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepo) GetForUpdate(ctx context.Context, siteID id.ID) (*siteledger.Site, error) {
	var site siteledger.Site
	q := postgres.ForUpdate(r.selectSite().Where(squirrel.Eq{"id": siteID}))
	if err := r.Get(ctx, &site, q, "site", siteID); err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepo) List(ctx context.Context, filter siteledger.ListFilter) ([]*siteledger.Site, error) {
	q := r.selectSite().OrderBy("name", "id")
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.ManagerID != nil {
		q = q.Where(squirrel.Eq{"manager_id": *filter.ManagerID})
	}
	var sites []*siteledger.Site
	if err := r.Select(ctx, &sites, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

func (r *SiteRepo) UpdateStatus(ctx context.Context, siteID id.ID, from, to siteledger.Status) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Update(sitesTable).
		Set("status", to).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": siteID, "status": from}))
	if err != nil {
		return false, fmt.Errorf("update site status: %w", err)
	}
	return n == 1, nil
}

func (r *SiteRepo) AddExpenses(ctx context.Context, siteID id.ID, amount types.Money) (types.Money, error) {
	var total types.Money
	err := r.Querier(ctx).QueryRow(ctx, `
		UPDATE sites SET expenses = expenses + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING expenses
	`, amount, siteID).Scan(&total)
	if err != nil {
		return types.Zero(), notFoundOr(err, "site", siteID)
	}
	return total, nil
}

func (r *SiteRepo) SetExpenses(ctx context.Context, siteID id.ID, expenses types.Money) error {
	n, err := r.Exec(ctx, r.Builder().Update(sitesTable).
		Set("expenses", expenses).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": siteID}))
	if err != nil {
		return fmt.Errorf("set site expenses: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("site", siteID)
	}
	return nil
}

// AppendEntry takes the next seq from the site row. The caller holds the
// site row lock, so numbering is gapless within committed units.
func (r *SiteRepo) AppendEntry(ctx context.Context, e *siteledger.Entry) error {
	err := r.Querier(ctx).QueryRow(ctx, `
		UPDATE sites SET entry_seq = entry_seq + 1 WHERE id = $1 RETURNING entry_seq
	`, e.SiteID).Scan(&e.Seq)
	if err != nil {
		return notFoundOr(err, "site", e.SiteID)
	}
	return r.Insert(ctx, siteEntriesTable, e)
}

func (r *SiteRepo) ListEntries(ctx context.Context, siteID id.ID, filter siteledger.EntryFilter) ([]*siteledger.Entry, error) {
	q := r.Builder().Select(entryColumns...).From(siteEntriesTable).
		Where(squirrel.Eq{"site_id": siteID}).
		OrderBy("seq")
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.FromSeq > 0 {
		q = q.Where(squirrel.GtOrEq{"seq": filter.FromSeq})
	}
	var entries []*siteledger.Entry
	if err := r.Select(ctx, &entries, postgres.Page(q, filter.Limit, 0)); err != nil {
		return nil, fmt.Errorf("list site entries: %w", err)
	}
	return entries, nil
}

func (r *SiteRepo) SumEntries(ctx context.Context, siteID id.ID) (types.Money, error) {
	var sum types.Money
	err := r.Querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = $2 THEN -amount ELSE amount END), 0)
		FROM site_entries WHERE site_id = $1
	`, siteID, siteledger.KindIncome).Scan(&sum)
	if err != nil {
		return types.Zero(), fmt.Errorf("sum site entries: %w", err)
	}
	return sum, nil
}
