package memory

import (
	"context"
	"sort"
	"strings"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/contractor"
)

// ContractorRepo implements contractor.Repository.
type ContractorRepo struct{ s *Store }

var _ contractor.Repository = (*ContractorRepo)(nil)

// Contractors returns the contractor repository.
func (s *Store) Contractors() *ContractorRepo { return &ContractorRepo{s: s} }

func cloneContractor(v *contractor.Contractor) *contractor.Contractor {
	c := clone(v)
	c.Assignments = nil
	return c
}

func (r *ContractorRepo) Create(ctx context.Context, c *contractor.Contractor) error {
	return r.s.write(ctx, func(u *unit) error {
		if _, ok := r.s.contractors[c.ID]; ok {
			return apperror.NewDuplicate("contractor", "id", c.ID.String())
		}
		put(u, r.s.contractors, c.ID, cloneContractor(c))
		return nil
	})
}

func (r *ContractorRepo) GetByID(ctx context.Context, contractorID id.ID) (*contractor.Contractor, error) {
	var out *contractor.Contractor
	err := r.s.read(ctx, func() error {
		v, ok := r.s.contractors[contractorID]
		if !ok {
			return apperror.NewNotFound("contractor", contractorID)
		}
		out = cloneContractor(v)
		return nil
	})
	return out, err
}

func (r *ContractorRepo) List(ctx context.Context, filter contractor.ListFilter) ([]*contractor.Contractor, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*contractor.Contractor
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.contractors {
			if search != "" && !strings.Contains(strings.ToLower(v.Name), search) {
				continue
			}
			if filter.SiteID != nil {
				if _, ok := r.s.assignments[assignmentKey{v.ID, *filter.SiteID}]; !ok {
					continue
				}
			}
			out = append(out, cloneContractor(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *ContractorRepo) sortedAssignments(match func(*contractor.Assignment) bool) []*contractor.Assignment {
	var out []*contractor.Assignment
	for _, a := range r.s.assignments {
		if match(a) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].SiteID.String() < out[j].SiteID.String()
		}
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	return out
}

func (r *ContractorRepo) ListAssignments(ctx context.Context, contractorID id.ID) ([]*contractor.Assignment, error) {
	var out []*contractor.Assignment
	err := r.s.read(ctx, func() error {
		out = r.sortedAssignments(func(a *contractor.Assignment) bool { return a.ContractorID == contractorID })
		return nil
	})
	return out, err
}

func (r *ContractorRepo) ListAllAssignments(ctx context.Context, limit, offset int) ([]*contractor.Assignment, error) {
	var out []*contractor.Assignment
	err := r.s.read(ctx, func() error {
		out = r.sortedAssignments(func(*contractor.Assignment) bool { return true })
		return nil
	})
	return page(out, limit, offset), err
}

func (r *ContractorRepo) GetAssignmentForUpdate(ctx context.Context, contractorID, siteID id.ID) (*contractor.Assignment, error) {
	var out *contractor.Assignment
	err := r.s.read(ctx, func() error {
		a, ok := r.s.assignments[assignmentKey{contractorID, siteID}]
		if !ok {
			return apperror.NewNotFound("assignment", contractorID.String()+"/"+siteID.String())
		}
		out = clone(a)
		return nil
	})
	return out, err
}

func (r *ContractorRepo) AddAssignment(ctx context.Context, a *contractor.Assignment) (bool, error) {
	var created bool
	err := r.s.write(ctx, func(u *unit) error {
		key := assignmentKey{a.ContractorID, a.SiteID}
		if _, ok := r.s.assignments[key]; ok {
			return nil
		}
		put(u, r.s.assignments, key, clone(a))
		created = true
		return nil
	})
	return created, err
}

func (r *ContractorRepo) AdjustBalance(ctx context.Context, contractorID, siteID id.ID, delta types.Money) (types.Money, error) {
	var balance types.Money
	err := r.s.write(ctx, func(u *unit) error {
		key := assignmentKey{contractorID, siteID}
		a, ok := r.s.assignments[key]
		if !ok {
			return apperror.NewNotFound("assignment", contractorID.String()+"/"+siteID.String())
		}
		c := clone(a)
		c.Balance = c.Balance.Add(delta)
		put(u, r.s.assignments, key, c)
		balance = c.Balance
		return nil
	})
	return balance, err
}

func (r *ContractorRepo) SetBalance(ctx context.Context, contractorID, siteID id.ID, balance types.Money) error {
	return r.s.write(ctx, func(u *unit) error {
		key := assignmentKey{contractorID, siteID}
		a, ok := r.s.assignments[key]
		if !ok {
			return apperror.NewNotFound("assignment", contractorID.String()+"/"+siteID.String())
		}
		c := clone(a)
		c.Balance = balance
		put(u, r.s.assignments, key, c)
		return nil
	})
}

func (r *ContractorRepo) AppendTransaction(ctx context.Context, t *contractor.Transaction) error {
	return r.s.write(ctx, func(u *unit) error {
		appendKeyed(u, r.s.contractorTx, assignmentKey{t.ContractorID, t.SiteID}, clone(t))
		return nil
	})
}

func (r *ContractorRepo) ListTransactions(ctx context.Context, contractorID, siteID id.ID) ([]*contractor.Transaction, error) {
	var out []*contractor.Transaction
	err := r.s.read(ctx, func() error {
		for _, t := range r.s.contractorTx[assignmentKey{contractorID, siteID}] {
			out = append(out, clone(t))
		}
		return nil
	})
	return out, err
}
