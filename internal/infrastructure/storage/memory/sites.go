package memory

import (
	"context"
	"sort"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/siteledger"
)

// SiteRepo implements siteledger.Repository.
type SiteRepo struct{ s *Store }

var _ siteledger.Repository = (*SiteRepo)(nil)

// Sites returns the site ledger repository.
func (s *Store) Sites() *SiteRepo { return &SiteRepo{s: s} }

func cloneSite(v *siteledger.Site) *siteledger.Site {
	c := clone(v)
	c.Phases = append([]siteledger.Phase(nil), v.Phases...)
	c.ManagerID = clone(v.ManagerID)
	return c
}

func (r *SiteRepo) Create(ctx context.Context, site *siteledger.Site) error {
	return r.s.write(ctx, func(u *unit) error {
		if _, ok := r.s.sites[site.ID]; ok {
			return apperror.NewDuplicate("site", "id", site.ID.String())
		}
		put(u, r.s.sites, site.ID, cloneSite(site))
		return nil
	})
}

func (r *SiteRepo) GetByID(ctx context.Context, siteID id.ID) (*siteledger.Site, error) {
	var out *siteledger.Site
	err := r.s.read(ctx, func() error {
		v, ok := r.s.sites[siteID]
		if !ok {
			return apperror.NewNotFound("site", siteID)
		}
		out = cloneSite(v)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store lock already serializes units.
func (r *SiteRepo) GetForUpdate(ctx context.Context, siteID id.ID) (*siteledger.Site, error) {
	return r.GetByID(ctx, siteID)
}

func (r *SiteRepo) List(ctx context.Context, filter siteledger.ListFilter) ([]*siteledger.Site, error) {
	var out []*siteledger.Site
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.sites {
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			if filter.ManagerID != nil && !id.Equal(v.ManagerID, filter.ManagerID) {
				continue
			}
			out = append(out, cloneSite(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *SiteRepo) UpdateStatus(ctx context.Context, siteID id.ID, from, to siteledger.Status) (bool, error) {
	var updated bool
	err := r.s.write(ctx, func(u *unit) error {
		v, ok := r.s.sites[siteID]
		if !ok {
			return apperror.NewNotFound("site", siteID)
		}
		if v.Status != from {
			return nil
		}
		c := cloneSite(v)
		c.Status = to
		c.Version++
		c.UpdatedAt = time.Now().UTC()
		put(u, r.s.sites, siteID, c)
		updated = true
		return nil
	})
	return updated, err
}

func (r *SiteRepo) AddExpenses(ctx context.Context, siteID id.ID, amount types.Money) (types.Money, error) {
	var total types.Money
	err := r.s.write(ctx, func(u *unit) error {
		v, ok := r.s.sites[siteID]
		if !ok {
			return apperror.NewNotFound("site", siteID)
		}
		c := cloneSite(v)
		c.Expenses = c.Expenses.Add(amount)
		c.Version++
		c.UpdatedAt = time.Now().UTC()
		put(u, r.s.sites, siteID, c)
		total = c.Expenses
		return nil
	})
	return total, err
}

func (r *SiteRepo) SetExpenses(ctx context.Context, siteID id.ID, expenses types.Money) error {
	return r.s.write(ctx, func(u *unit) error {
		v, ok := r.s.sites[siteID]
		if !ok {
			return apperror.NewNotFound("site", siteID)
		}
		c := cloneSite(v)
		c.Expenses = expenses
		c.Version++
		c.UpdatedAt = time.Now().UTC()
		put(u, r.s.sites, siteID, c)
		return nil
	})
}

func (r *SiteRepo) AppendEntry(ctx context.Context, e *siteledger.Entry) error {
	return r.s.write(ctx, func(u *unit) error {
		if _, ok := r.s.sites[e.SiteID]; !ok {
			return apperror.NewNotFound("site", e.SiteID)
		}
		e.Seq = int64(len(r.s.siteEntries[e.SiteID]) + 1)
		appendKeyed(u, r.s.siteEntries, e.SiteID, clone(e))
		return nil
	})
}

func (r *SiteRepo) ListEntries(ctx context.Context, siteID id.ID, filter siteledger.EntryFilter) ([]*siteledger.Entry, error) {
	var out []*siteledger.Entry
	err := r.s.read(ctx, func() error {
		for _, e := range r.s.siteEntries[siteID] {
			if e.Seq < filter.FromSeq {
				continue
			}
			if filter.Type != nil && e.Type != *filter.Type {
				continue
			}
			out = append(out, clone(e))
		}
		return nil
	})
	return page(out, filter.Limit, 0), err
}

func (r *SiteRepo) SumEntries(ctx context.Context, siteID id.ID) (types.Money, error) {
	sum := types.Zero()
	err := r.s.read(ctx, func() error {
		for _, e := range r.s.siteEntries[siteID] {
			sum = sum.Add(e.SignedAmount())
		}
		return nil
	})
	return sum, err
}
