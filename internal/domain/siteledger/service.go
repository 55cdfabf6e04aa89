package siteledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/notification"
	"buildledger/pkg/logger"
)

const entityType = "site"

// Notifier delivers best-effort notifications.
type Notifier interface {
	Emit(ctx context.Context, in notification.NotifyInput)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Service is the single mutation point for site expenses.
type Service struct {
	txm      tx.Manager
	repo     Repository
	notifier Notifier
	recorder ActivityRecorder
	rule     *BudgetRule
}

// NewService creates a site ledger service. notifier, recorder and rule may
// be nil; a nil rule disables budget alerts.
func NewService(txm tx.Manager, repo Repository, notifier Notifier, recorder ActivityRecorder, rule *BudgetRule) *Service {
	return &Service{
		txm:      txm,
		repo:     repo,
		notifier: notifier,
		recorder: recorder,
		rule:     rule,
	}
}

// Create registers a site in planning status.
func (s *Service) Create(ctx context.Context, a actor.Actor, in CreateSiteInput) (*Site, error) {
	if err := a.Authorize(actor.ActionManageSites); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewFieldValidation("name", "site name is required")
	}
	if in.Budget.IsNegative() {
		return nil, apperror.NewFieldValidation("budget", "budget cannot be negative")
	}

	now := time.Now().UTC()
	site := &Site{
		ID:        id.New(),
		Name:      in.Name,
		Location:  strings.TrimSpace(in.Location),
		Budget:    in.Budget,
		Expenses:  types.Zero(),
		Status:    StatusPlanning,
		ManagerID: in.ManagerID,
		Phases:    in.Phases,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if site.Phases == nil {
		site.Phases = []Phase{}
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, site); err != nil {
			return err
		}
		return s.record(ctx, a, activity.ActionCreate, site.ID, site)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "site created", "site_id", site.ID, "name", site.Name)
	return site, nil
}

// Get returns a site.
func (s *Service) Get(ctx context.Context, siteID id.ID) (*Site, error) {
	return s.repo.GetByID(ctx, siteID)
}

// List returns sites.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Site, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// ChangeStatus moves a site along its lifecycle.
func (s *Service) ChangeStatus(ctx context.Context, a actor.Actor, siteID id.ID, to Status) (*Site, error) {
	if err := a.Authorize(actor.ActionManageSites); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperror.NewFieldValidation("status", "unknown site status")
	}

	var site *Site
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, siteID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(to) {
			return apperror.NewInvalidState(entityType, siteID, string(current.Status), "change status to "+string(to))
		}
		ok, err := s.repo.UpdateStatus(ctx, siteID, current.Status, to)
		if err != nil {
			return fmt.Errorf("update site status: %w", err)
		}
		if !ok {
			return apperror.NewConcurrentModification(entityType, siteID)
		}
		from := current.Status
		current.Status = to
		current.Version++
		site = current
		return s.record(ctx, a, activity.ActionStatusChange, siteID, map[string]any{"from": from, "to": to})
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

// PostExpense appends one entry and raises Site.expenses by the same amount
// in a single unit. Calling services authorize their own operation; posting
// itself is not role-checked. Exceeding the budget never rejects a posting.
func (s *Service) PostExpense(ctx context.Context, a actor.Actor, in PostExpenseInput) (*Entry, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if !in.Type.Valid() {
		return nil, apperror.NewFieldValidation("type", "unknown expense type")
	}

	var entry *Entry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		site, err := s.repo.GetForUpdate(ctx, in.SiteID)
		if err != nil {
			return err
		}
		before := site.Expenses

		after, err := s.repo.AddExpenses(ctx, in.SiteID, in.Amount)
		if err != nil {
			return fmt.Errorf("add site expenses: %w", err)
		}

		entry = &Entry{
			ID:            id.New(),
			SiteID:        in.SiteID,
			Kind:          KindExpense,
			Type:          in.Type,
			Amount:        in.Amount,
			RelatedID:     in.RelatedID,
			ExpensesAfter: after,
			PostedBy:      a.UserID(),
			PostedAt:      time.Now().UTC(),
		}
		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append site entry: %w", err)
		}

		if err := s.record(ctx, a, activity.ActionPost, in.SiteID, entry); err != nil {
			return err
		}

		s.alertIfCrossed(ctx, site, before, after)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "site expense posted",
		"site_id", entry.SiteID,
		"seq", entry.Seq,
		"type", entry.Type,
		"amount", entry.Amount.String(),
	)
	return entry, nil
}

// alertIfCrossed schedules a budget alert for the site manager once the
// rule starts matching. Delivery happens after commit.
func (s *Service) alertIfCrossed(ctx context.Context, site *Site, before, after types.Money) {
	if s.rule == nil || s.notifier == nil || site.ManagerID == nil {
		return
	}
	crossed, err := s.rule.Crossed(site.Budget, before, after)
	if err != nil {
		logger.Warn(ctx, "budget rule evaluation failed", "site_id", site.ID, "error", err)
		return
	}
	if !crossed {
		return
	}

	in := notification.NotifyInput{
		UserID:    *site.ManagerID,
		Type:      notification.TypeBudgetAlert,
		RelatedID: id.Ptr(site.ID),
		Message: fmt.Sprintf("Site %q expenses %s exceed budget %s",
			site.Name, after.StringFixed(2), site.Budget.StringFixed(2)),
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Emit(ctx, in)
	})
}

// Entries returns a site's log in posting order.
func (s *Service) Entries(ctx context.Context, siteID id.ID, filter EntryFilter) ([]*Entry, error) {
	if _, err := s.repo.GetByID(ctx, siteID); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, siteID, filter)
}

// Summary returns budget figures and per-type totals.
func (s *Service) Summary(ctx context.Context, siteID id.ID) (*Summary, error) {
	site, err := s.repo.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, siteID, EntryFilter{})
	if err != nil {
		return nil, err
	}

	byType := make(map[EntryType]types.Money)
	for _, e := range entries {
		byType[e.Type] = byType[e.Type].Add(e.SignedAmount())
	}
	return &Summary{
		SiteID:     site.ID,
		Budget:     site.Budget,
		Expenses:   site.Expenses,
		Remaining:  site.Remaining(),
		OverBudget: site.Budget.IsPositive() && site.Expenses.GreaterThan(site.Budget),
		ByType:     byType,
	}, nil
}

// Reconcile compares Site.expenses with the signed sum of its log and, with
// repair, overwrites the cached total.
func (s *Service) Reconcile(ctx context.Context, a actor.Actor, siteID id.ID, repair bool) (*Reconciliation, error) {
	if err := a.Authorize(actor.ActionReconcile); err != nil {
		return nil, err
	}

	var rec *Reconciliation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		site, err := s.repo.GetForUpdate(ctx, siteID)
		if err != nil {
			return err
		}
		computed, err := s.repo.SumEntries(ctx, siteID)
		if err != nil {
			return fmt.Errorf("sum site entries: %w", err)
		}
		rec = &Reconciliation{
			SiteID:   siteID,
			Cached:   site.Expenses,
			Computed: computed,
			Drift:    site.Expenses.Sub(computed),
		}
		if rec.InSync() || !repair {
			return nil
		}
		if err := s.repo.SetExpenses(ctx, siteID, computed); err != nil {
			return fmt.Errorf("repair site expenses: %w", err)
		}
		rec.Repaired = true
		return s.record(ctx, a, activity.ActionReconcile, siteID, rec)
	})
	if err != nil {
		return nil, err
	}

	if !rec.InSync() {
		logger.Warn(ctx, "site expenses drift",
			"site_id", siteID,
			"cached", rec.Cached.String(),
			"computed", rec.Computed.String(),
			"repaired", rec.Repaired,
		)
	}
	return rec, nil
}

// ReconcileAll reconciles every site. Used by the background worker.
func (s *Service) ReconcileAll(ctx context.Context, a actor.Actor, repair bool) ([]*Reconciliation, error) {
	var out []*Reconciliation
	offset := 0
	for {
		sites, err := s.repo.List(ctx, ListFilter{Limit: 200, Offset: offset})
		if err != nil {
			return out, err
		}
		for _, site := range sites {
			rec, err := s.Reconcile(ctx, a, site.ID, repair)
			if err != nil {
				return out, err
			}
			out = append(out, rec)
		}
		if len(sites) < 200 {
			return out, nil
		}
		offset += len(sites)
	}
}

func (s *Service) record(ctx context.Context, a actor.Actor, action activity.Action, siteID id.ID, payload any) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Record(ctx, a, action, entityType, siteID, payload)
}
