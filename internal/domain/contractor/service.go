package contractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/lock"
	"buildledger/internal/core/tx"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/siteledger"
	"buildledger/pkg/logger"
)

const entityType = "contractor"

// SiteReader resolves sites.
type SiteReader interface {
	Get(ctx context.Context, siteID id.ID) (*siteledger.Site, error)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Service manages contractor accounts.
type Service struct {
	txm      tx.Manager
	repo     Repository
	sites    SiteReader
	locker   lock.Locker
	lockTTL  time.Duration
	recorder ActivityRecorder
}

// NewService creates a contractor service. A nil locker disables the
// per-assignment lock; row locks still serialize postings.
func NewService(txm tx.Manager, repo Repository, sites SiteReader, locker lock.Locker, lockTTL time.Duration, recorder ActivityRecorder) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Service{
		txm:      txm,
		repo:     repo,
		sites:    sites,
		locker:   locker,
		lockTTL:  lockTTL,
		recorder: recorder,
	}
}

// Create registers a contractor.
func (s *Service) Create(ctx context.Context, a actor.Actor, in CreateInput) (*Contractor, error) {
	if err := a.Authorize(actor.ActionManageContractor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewFieldValidation("name", "contractor name is required")
	}

	c := &Contractor{
		ID:          id.New(),
		Name:        in.Name,
		Phone:       strings.TrimSpace(in.Phone),
		Specialty:   strings.TrimSpace(in.Specialty),
		Assignments: []*Assignment{},
		CreatedAt:   time.Now().UTC(),
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.record(ctx, a, activity.ActionCreate, c.ID, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a contractor with assignments.
func (s *Service) Get(ctx context.Context, contractorID id.ID) (*Contractor, error) {
	c, err := s.repo.GetByID(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	c.Assignments = assignments
	return c, nil
}

// List returns contractors.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Contractor, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// AssignSite links a contractor to a site. Repeating it is a no-op that
// returns the existing assignment with created=false.
func (s *Service) AssignSite(ctx context.Context, a actor.Actor, contractorID, siteID id.ID) (*Assignment, bool, error) {
	if err := a.Authorize(actor.ActionAssignContractor); err != nil {
		return nil, false, err
	}
	if _, err := s.sites.Get(ctx, siteID); err != nil {
		return nil, false, err
	}

	var (
		assignment *Assignment
		created    bool
	)
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, contractorID); err != nil {
			return err
		}
		candidate := &Assignment{
			ContractorID: contractorID,
			SiteID:       siteID,
			Balance:      types.Zero(),
			AssignedAt:   time.Now().UTC(),
		}
		ok, err := s.repo.AddAssignment(ctx, candidate)
		if err != nil {
			return fmt.Errorf("add assignment: %w", err)
		}
		created = ok
		if !ok {
			assignment, err = s.repo.GetAssignmentForUpdate(ctx, contractorID, siteID)
			return err
		}
		assignment = candidate
		return s.record(ctx, a, activity.ActionAssign, contractorID, map[string]any{"siteId": siteID})
	})
	if err != nil {
		return nil, false, err
	}
	return assignment, created, nil
}

// PostTransaction appends a transaction and moves the cached balance by the
// signed amount in one unit.
func (s *Service) PostTransaction(ctx context.Context, a actor.Actor, in PostInput) (*Transaction, error) {
	if err := a.Authorize(actor.ActionPostContractor); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if in.Type.Sign() == 0 {
		return nil, apperror.NewFieldValidation("type", "type must be advance, expense or additional_payment")
	}

	lk, err := s.locker.Obtain(ctx, lock.Key("contractor", in.ContractorID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release contractor lock", "contractor_id", in.ContractorID, "error", err)
		}
	}()

	var txn *Transaction
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, in.ContractorID); err != nil {
			return err
		}
		if _, err := s.repo.GetAssignmentForUpdate(ctx, in.ContractorID, in.SiteID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewFieldValidation("siteId", "contractor is not assigned to this site").
					WithDetail("contractor_id", in.ContractorID).
					WithDetail("site_id", in.SiteID)
			}
			return err
		}

		balance, err := s.repo.AdjustBalance(ctx, in.ContractorID, in.SiteID, in.Type.Signed(in.Amount))
		if err != nil {
			return fmt.Errorf("adjust contractor balance: %w", err)
		}

		txn = &Transaction{
			ID:           id.New(),
			ContractorID: in.ContractorID,
			SiteID:       in.SiteID,
			Type:         in.Type,
			Amount:       in.Amount,
			Description:  strings.TrimSpace(in.Description),
			BalanceAfter: balance,
			PostedBy:     a.UserID(),
			PostedAt:     time.Now().UTC(),
		}
		if err := s.repo.AppendTransaction(ctx, txn); err != nil {
			return fmt.Errorf("append contractor transaction: %w", err)
		}
		return s.record(ctx, a, activity.ActionPost, in.ContractorID, txn)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "contractor transaction posted",
		"contractor_id", txn.ContractorID,
		"site_id", txn.SiteID,
		"type", txn.Type,
		"amount", txn.Amount.String(),
	)
	return txn, nil
}

// Balance recomputes the balance from the transaction log.
func (s *Service) Balance(ctx context.Context, contractorID, siteID id.ID) (types.Money, error) {
	if _, err := s.repo.GetByID(ctx, contractorID); err != nil {
		return types.Zero(), err
	}
	txns, err := s.repo.ListTransactions(ctx, contractorID, siteID)
	if err != nil {
		return types.Zero(), err
	}
	return signedSum(txns), nil
}

// Transactions returns the log for an assignment in posting order.
func (s *Service) Transactions(ctx context.Context, contractorID, siteID id.ID) ([]*Transaction, error) {
	if _, err := s.repo.GetByID(ctx, contractorID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, contractorID, siteID)
}

// Reconcile compares the cached balance with the log and, with repair,
// overwrites the cache.
func (s *Service) Reconcile(ctx context.Context, a actor.Actor, contractorID, siteID id.ID, repair bool) (*Reconciliation, error) {
	if err := a.Authorize(actor.ActionReconcile); err != nil {
		return nil, err
	}

	var rec *Reconciliation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		assignment, err := s.repo.GetAssignmentForUpdate(ctx, contractorID, siteID)
		if err != nil {
			return err
		}
		txns, err := s.repo.ListTransactions(ctx, contractorID, siteID)
		if err != nil {
			return err
		}
		computed := signedSum(txns)
		rec = &Reconciliation{
			ContractorID: contractorID,
			SiteID:       siteID,
			Cached:       assignment.Balance,
			Computed:     computed,
			Drift:        assignment.Balance.Sub(computed),
		}
		if rec.Drift.IsZero() || !repair {
			return nil
		}
		if err := s.repo.SetBalance(ctx, contractorID, siteID, computed); err != nil {
			return fmt.Errorf("repair contractor balance: %w", err)
		}
		rec.Repaired = true
		return s.record(ctx, a, activity.ActionReconcile, contractorID, rec)
	})
	if err != nil {
		return nil, err
	}
	if !rec.Drift.IsZero() {
		logger.Warn(ctx, "contractor balance drift",
			"contractor_id", contractorID,
			"site_id", siteID,
			"cached", rec.Cached.String(),
			"computed", rec.Computed.String(),
		)
	}
	return rec, nil
}

// ReconcileAll reconciles every assignment.
func (s *Service) ReconcileAll(ctx context.Context, a actor.Actor, repair bool) ([]*Reconciliation, error) {
	var out []*Reconciliation
	for offset := 0; ; {
		page, err := s.repo.ListAllAssignments(ctx, 200, offset)
		if err != nil {
			return out, err
		}
		for _, asg := range page {
			rec, err := s.Reconcile(ctx, a, asg.ContractorID, asg.SiteID, repair)
			if err != nil {
				return out, err
			}
			out = append(out, rec)
		}
		if len(page) < 200 {
			return out, nil
		}
		offset += len(page)
	}
}

func signedSum(txns []*Transaction) types.Money {
	total := types.Zero()
	for _, t := range txns {
		total = total.Add(t.Type.Signed(t.Amount))
	}
	return total
}

func (s *Service) record(ctx context.Context, a actor.Actor, action activity.Action, contractorID id.ID, payload any) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Record(ctx, a, action, entityType, contractorID, payload)
}
