package memory

import (
	"context"
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/company"
)

// CompanyRepo implements company.Repository.
type CompanyRepo struct{ s *Store }

var _ company.Repository = (*CompanyRepo)(nil)

// Company returns the company ledger repository.
func (s *Store) Company() *CompanyRepo { return &CompanyRepo{s: s} }

// ensureAccount creates the singleton; the caller holds the store lock.
func (r *CompanyRepo) ensureAccount(u *unit) *company.Account {
	if r.s.account == nil {
		acc := &company.Account{
			ID:          id.New(),
			Name:        "Company",
			TotalAmount: types.Zero(),
			UpdatedAt:   time.Now().UTC(),
		}
		prev := r.s.account
		u.onRollback(func() { r.s.account = prev })
		r.s.account = acc
	}
	return r.s.account
}

func (r *CompanyRepo) Get(ctx context.Context) (*company.Account, error) {
	var out *company.Account
	err := r.s.write(ctx, func(u *unit) error {
		out = clone(r.ensureAccount(u))
		return nil
	})
	return out, err
}

// GetForUpdate is Get; the store lock already serializes units.
func (r *CompanyRepo) GetForUpdate(ctx context.Context) (*company.Account, error) {
	return r.Get(ctx)
}

func (r *CompanyRepo) setTotal(u *unit, total types.Money) {
	prev := r.ensureAccount(u)
	c := clone(prev)
	c.TotalAmount = total
	c.UpdatedAt = time.Now().UTC()
	u.onRollback(func() { r.s.account = prev })
	r.s.account = c
}

func (r *CompanyRepo) Adjust(ctx context.Context, delta types.Money) (types.Money, error) {
	var total types.Money
	err := r.s.write(ctx, func(u *unit) error {
		total = r.ensureAccount(u).TotalAmount.Add(delta)
		r.setTotal(u, total)
		return nil
	})
	return total, err
}

func (r *CompanyRepo) SetTotal(ctx context.Context, total types.Money) error {
	return r.s.write(ctx, func(u *unit) error {
		r.setTotal(u, total)
		return nil
	})
}

func (r *CompanyRepo) AppendEntry(ctx context.Context, e *company.Entry) error {
	return r.s.write(ctx, func(u *unit) error {
		e.Seq = int64(len(r.s.companyEntries) + 1)
		appendSlice(u, &r.s.companyEntries, clone(e))
		return nil
	})
}

func (r *CompanyRepo) ListEntries(ctx context.Context, filter company.EntryFilter) ([]*company.Entry, error) {
	var out []*company.Entry
	err := r.s.read(ctx, func() error {
		for _, e := range r.s.companyEntries {
			if filter.SiteID != nil && !id.Equal(e.SiteID, filter.SiteID) {
				continue
			}
			out = append(out, clone(e))
		}
		return nil
	})
	return page(out, filter.Limit, filter.Offset), err
}

func (r *CompanyRepo) SumEntries(ctx context.Context) (types.Money, error) {
	sum := types.Zero()
	err := r.s.read(ctx, func() error {
		for _, e := range r.s.companyEntries {
			sum = sum.Add(e.Signed())
		}
		return nil
	})
	return sum, err
}
