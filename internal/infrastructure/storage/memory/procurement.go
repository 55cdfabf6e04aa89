package memory

import (
	"context"
	"sort"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/procurement"
)

// ProcurementRepo implements procurement.Repository.
type ProcurementRepo struct{ s *Store }

var _ procurement.Repository = (*ProcurementRepo)(nil)

// Procurement returns the purchase and rental repository.
func (s *Store) Procurement() *ProcurementRepo { return &ProcurementRepo{s: s} }

func clonePurchase(v *procurement.Purchase) *procurement.Purchase {
	c := clone(v)
	c.Items = append([]procurement.Item(nil), v.Items...)
	c.VerifiedBy = clone(v.VerifiedBy)
	c.VerifiedAt = clone(v.VerifiedAt)
	return c
}

func cloneRental(v *procurement.Rental) *procurement.Rental {
	c := clone(v)
	c.SiteID = clone(v.SiteID)
	c.EndDate = clone(v.EndDate)
	c.VerifiedBy = clone(v.VerifiedBy)
	c.VerifiedAt = clone(v.VerifiedAt)
	return c
}

func (r *ProcurementRepo) CreatePurchase(ctx context.Context, p *procurement.Purchase) error {
	return r.s.write(ctx, func(u *unit) error {
		for _, existing := range r.s.purchases {
			if existing.Number == p.Number {
				return apperror.NewDuplicate("purchase", "number", p.Number)
			}
		}
		put(u, r.s.purchases, p.ID, clonePurchase(p))
		return nil
	})
}

func (r *ProcurementRepo) GetPurchase(ctx context.Context, purchaseID id.ID) (*procurement.Purchase, error) {
	var out *procurement.Purchase
	err := r.s.read(ctx, func() error {
		v, ok := r.s.purchases[purchaseID]
		if !ok {
			return apperror.NewNotFound("purchase", purchaseID)
		}
		out = clonePurchase(v)
		return nil
	})
	return out, err
}

func (r *ProcurementRepo) ListPurchases(ctx context.Context, filter procurement.ListFilter) ([]*procurement.Purchase, error) {
	var out []*procurement.Purchase
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.purchases {
			if filter.SiteID != nil && v.SiteID != *filter.SiteID {
				continue
			}
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			out = append(out, clonePurchase(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *ProcurementRepo) VerifyPurchase(ctx context.Context, purchaseID id.ID, v procurement.Verification) (bool, error) {
	var done bool
	err := r.s.write(ctx, func(u *unit) error {
		cur, ok := r.s.purchases[purchaseID]
		if !ok {
			return apperror.NewNotFound("purchase", purchaseID)
		}
		if cur.Status != procurement.StatusPending {
			return nil
		}
		c := clonePurchase(cur)
		c.Status = procurement.StatusVerified
		c.VerifiedBy = id.Ptr(v.By)
		at := v.At
		c.VerifiedAt = &at
		put(u, r.s.purchases, purchaseID, c)
		done = true
		return nil
	})
	return done, err
}

func (r *ProcurementRepo) CreateRental(ctx context.Context, rental *procurement.Rental) error {
	return r.s.write(ctx, func(u *unit) error {
		for _, existing := range r.s.rentals {
			if existing.Number == rental.Number {
				return apperror.NewDuplicate("rental", "number", rental.Number)
			}
		}
		put(u, r.s.rentals, rental.ID, cloneRental(rental))
		return nil
	})
}

func (r *ProcurementRepo) GetRental(ctx context.Context, rentalID id.ID) (*procurement.Rental, error) {
	var out *procurement.Rental
	err := r.s.read(ctx, func() error {
		v, ok := r.s.rentals[rentalID]
		if !ok {
			return apperror.NewNotFound("rental", rentalID)
		}
		out = cloneRental(v)
		return nil
	})
	return out, err
}

func (r *ProcurementRepo) ListRentals(ctx context.Context, filter procurement.ListFilter) ([]*procurement.Rental, error) {
	var out []*procurement.Rental
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.rentals {
			if filter.SiteID != nil && !id.Equal(v.SiteID, filter.SiteID) {
				continue
			}
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			out = append(out, cloneRental(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *ProcurementRepo) VerifyRental(ctx context.Context, rentalID id.ID, v procurement.Verification) (bool, error) {
	var done bool
	err := r.s.write(ctx, func(u *unit) error {
		cur, ok := r.s.rentals[rentalID]
		if !ok {
			return apperror.NewNotFound("rental", rentalID)
		}
		if cur.Status != procurement.StatusPending {
			return nil
		}
		c := cloneRental(cur)
		c.Status = procurement.StatusVerified
		c.VerifiedBy = id.Ptr(v.By)
		at := v.At
		c.VerifiedAt = &at
		put(u, r.s.rentals, rentalID, c)
		done = true
		return nil
	})
	return done, err
}
