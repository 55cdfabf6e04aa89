package company

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/siteledger"
	"buildledger/pkg/logger"
)

const entityType = "company"

// SiteReader resolves sites referenced by postings.
type SiteReader interface {
	Get(ctx context.Context, siteID id.ID) (*siteledger.Site, error)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Service posts to the company ledger.
type Service struct {
	txm      tx.Manager
	repo     Repository
	sites    SiteReader
	recorder ActivityRecorder
}

// NewService creates a company ledger service.
func NewService(txm tx.Manager, repo Repository, sites SiteReader, recorder ActivityRecorder) *Service {
	return &Service{txm: txm, repo: repo, sites: sites, recorder: recorder}
}

// PostTransaction appends an entry and moves the total by +amount for
// incoming and -amount for expenditure.
func (s *Service) PostTransaction(ctx context.Context, a actor.Actor, in PostInput) (*Entry, error) {
	if err := a.Authorize(actor.ActionPostCompany); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if in.Type.Sign() == 0 {
		return nil, apperror.NewFieldValidation("type", "type must be incoming or expenditure")
	}
	if in.SiteID != nil {
		if _, err := s.sites.Get(ctx, *in.SiteID); err != nil {
			return nil, err
		}
	}

	var entry *Entry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.Get(ctx)
		if err != nil {
			return fmt.Errorf("load company account: %w", err)
		}

		entry = &Entry{
			ID:          id.New(),
			Type:        in.Type,
			Amount:      in.Amount,
			SiteID:      in.SiteID,
			Description: strings.TrimSpace(in.Description),
			PostedBy:    a.UserID(),
			PostedAt:    time.Now().UTC(),
		}
		total, err := s.repo.Adjust(ctx, entry.Signed())
		if err != nil {
			return fmt.Errorf("adjust company total: %w", err)
		}
		entry.TotalAfter = total

		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append company entry: %w", err)
		}
		if s.recorder != nil {
			return s.recorder.Record(ctx, a, activity.ActionPost, entityType, acc.ID, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "company transaction posted",
		"type", entry.Type,
		"amount", entry.Amount.String(),
		"total_after", entry.TotalAfter.String(),
	)
	return entry, nil
}

// Get returns the company account.
func (s *Service) Get(ctx context.Context) (*Account, error) {
	return s.repo.Get(ctx)
}

// Entries returns the log in posting order.
func (s *Service) Entries(ctx context.Context, filter EntryFilter) ([]*Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListEntries(ctx, filter)
}

// Reconcile compares the cached total with the signed sum of the log. The
// account row stays locked from the read to the repair so that no posting
// commits in between.
func (s *Service) Reconcile(ctx context.Context, a actor.Actor, repair bool) (*Reconciliation, error) {
	if err := a.Authorize(actor.ActionReconcile); err != nil {
		return nil, err
	}

	var rec *Reconciliation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		computed, err := s.repo.SumEntries(ctx)
		if err != nil {
			return fmt.Errorf("sum company entries: %w", err)
		}
		rec = &Reconciliation{
			Cached:   acc.TotalAmount,
			Computed: computed,
			Drift:    acc.TotalAmount.Sub(computed),
		}
		if rec.Drift.IsZero() || !repair {
			return nil
		}
		if err := s.repo.SetTotal(ctx, computed); err != nil {
			return fmt.Errorf("repair company total: %w", err)
		}
		rec.Repaired = true
		if s.recorder != nil {
			return s.recorder.Record(ctx, a, activity.ActionReconcile, entityType, acc.ID, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.Drift.IsZero() {
		logger.Warn(ctx, "company total drift", "cached", rec.Cached.String(), "computed", rec.Computed.String())
	}
	return rec, nil
}
