package memory

import (
	"context"
	"sort"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct{ s *Store }

var _ stock.Repository = (*StockRepo)(nil)

// Stock returns the stock repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

func cloneStock(v *stock.Stock) *stock.Stock {
	c := clone(v)
	c.SiteID = clone(v.SiteID)
	return c
}

func (r *StockRepo) GetByID(ctx context.Context, stockID id.ID) (*stock.Stock, error) {
	var out *stock.Stock
	err := r.s.read(ctx, func() error {
		v, ok := r.s.stock[stockID]
		if !ok {
			return apperror.NewNotFound("stock", stockID)
		}
		out = cloneStock(v)
		return nil
	})
	return out, err
}

func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) ([]*stock.Stock, error) {
	var out []*stock.Stock
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.stock {
			if filter.PoolOnly && v.SiteID != nil {
				continue
			}
			if filter.SiteID != nil && !id.Equal(v.SiteID, filter.SiteID) {
				continue
			}
			if filter.Category != "" && v.Category != filter.Category {
				continue
			}
			out = append(out, cloneStock(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return page(out, filter.Limit, filter.Offset), err
}

// lineFor finds the line for (site, identity); the caller holds the lock.
func (r *StockRepo) lineFor(siteID *id.ID, ident stock.Identity) *stock.Stock {
	for _, v := range r.s.stock {
		if id.Equal(v.SiteID, siteID) && v.Identity() == ident {
			return v
		}
	}
	return nil
}

func (r *StockRepo) CreditLine(ctx context.Context, siteID *id.ID, ident stock.Identity, unitCost types.Money, qty types.Quantity) (*stock.Stock, error) {
	var out *stock.Stock
	err := r.s.write(ctx, func(u *unit) error {
		now := time.Now().UTC()
		line := r.lineFor(siteID, ident)
		if line == nil {
			line = &stock.Stock{
				ID:        id.New(),
				SiteID:    clone(siteID),
				Name:      ident.Name,
				Category:  ident.Category,
				Unit:      ident.Unit,
				UnitCost:  unitCost,
				CreatedAt: now,
			}
		} else {
			line = cloneStock(line)
			if line.UnitCost.IsZero() {
				line.UnitCost = unitCost
			}
		}
		sum, err := line.Quantity.Add(qty)
		if err != nil {
			return stock.QuantityOverflow(ident, qty)
		}
		line.Quantity = sum
		line.UpdatedAt = now
		put(u, r.s.stock, line.ID, line)
		out = cloneStock(line)
		return nil
	})
	return out, err
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, stockID id.ID, qty types.Quantity) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func(u *unit) error {
		v, found := r.s.stock[stockID]
		if !found {
			return apperror.NewNotFound("stock", stockID)
		}
		if v.Quantity < qty {
			return nil
		}
		c := cloneStock(v)
		c.Quantity -= qty
		c.UpdatedAt = time.Now().UTC()
		put(u, r.s.stock, stockID, c)
		ok = true
		return nil
	})
	return ok, err
}

func (r *StockRepo) AppendMovement(ctx context.Context, m *stock.Movement) error {
	return r.s.write(ctx, func(u *unit) error {
		appendSlice(u, &r.s.movements, clone(m))
		return nil
	})
}

func (r *StockRepo) ListMovements(ctx context.Context, stockID id.ID, limit int) ([]*stock.Movement, error) {
	var out []*stock.Movement
	err := r.s.read(ctx, func() error {
		for _, m := range r.s.movements {
			if m.StockID == stockID {
				out = append(out, clone(m))
			}
		}
		return nil
	})
	return page(out, limit, 0), err
}

func (r *StockRepo) IdentityTotals(ctx context.Context, ident stock.Identity) (stock.Totals, error) {
	var t stock.Totals
	err := r.s.read(ctx, func() error {
		lines := make(map[id.ID]struct{})
		for _, v := range r.s.stock {
			if v.Identity() == ident {
				lines[v.ID] = struct{}{}
				t.OnHand += v.Quantity
			}
		}
		for _, m := range r.s.movements {
			if _, ok := lines[m.StockID]; !ok {
				continue
			}
			switch m.Kind {
			case stock.MovementReceipt:
				t.Received += m.Quantity
			case stock.MovementConsumption:
				t.Consumed += m.Quantity
			}
		}
		return nil
	})
	return t, err
}

func cloneTransfer(v *stock.Transfer) *stock.Transfer {
	c := clone(v)
	c.FromSiteID = clone(v.FromSiteID)
	c.DecidedBy = clone(v.DecidedBy)
	c.DecidedAt = clone(v.DecidedAt)
	c.DestStockID = clone(v.DestStockID)
	return c
}

func (r *StockRepo) CreateTransfer(ctx context.Context, t *stock.Transfer) error {
	return r.s.write(ctx, func(u *unit) error {
		for _, existing := range r.s.transfers {
			if existing.Number == t.Number {
				return apperror.NewDuplicate("transfer", "number", t.Number)
			}
		}
		put(u, r.s.transfers, t.ID, cloneTransfer(t))
		return nil
	})
}

func (r *StockRepo) GetTransfer(ctx context.Context, transferID id.ID) (*stock.Transfer, error) {
	var out *stock.Transfer
	err := r.s.read(ctx, func() error {
		v, ok := r.s.transfers[transferID]
		if !ok {
			return apperror.NewNotFound("transfer", transferID)
		}
		out = cloneTransfer(v)
		return nil
	})
	return out, err
}

func (r *StockRepo) CompleteTransfer(ctx context.Context, transferID id.ID, c stock.Completion) (bool, error) {
	var done bool
	err := r.s.write(ctx, func(u *unit) error {
		v, ok := r.s.transfers[transferID]
		if !ok {
			return apperror.NewNotFound("transfer", transferID)
		}
		if v.Status != stock.TransferRequested {
			return nil
		}
		t := cloneTransfer(v)
		t.Status = c.Status
		t.DecidedBy = id.Ptr(c.DecidedBy)
		decidedAt := c.DecidedAt
		t.DecidedAt = &decidedAt
		t.DestStockID = clone(c.DestStockID)
		t.DecisionNote = c.Note
		put(u, r.s.transfers, transferID, t)
		done = true
		return nil
	})
	return done, err
}

func (r *StockRepo) ListTransfers(ctx context.Context, filter stock.TransferFilter) ([]*stock.Transfer, error) {
	var out []*stock.Transfer
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.transfers {
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			if filter.SiteID != nil && !id.Equal(v.FromSiteID, filter.SiteID) && v.ToSiteID != *filter.SiteID {
				continue
			}
			out = append(out, cloneTransfer(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), err
}
