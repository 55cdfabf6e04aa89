package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/lock"
	"buildledger/internal/core/numerator"
	"buildledger/internal/core/tx"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/siteledger"
	"buildledger/pkg/logger"
)

const (
	entityStock    = "stock"
	entityTransfer = "stock_transfer"
)

// SiteLedger is the part of the site ledger the stock workflow needs.
type SiteLedger interface {
	Get(ctx context.Context, siteID id.ID) (*siteledger.Site, error)
	PostExpense(ctx context.Context, a actor.Actor, in siteledger.PostExpenseInput) (*siteledger.Entry, error)
}

// Notifier delivers and resolves notifications.
type Notifier interface {
	Emit(ctx context.Context, in notification.NotifyInput)
	ResolveRelated(ctx context.Context, relatedID id.ID, outcome notification.Status, by *id.ID) (int, error)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	TxManager tx.Manager
	Repo      Repository
	Sites     SiteLedger
	Numerator numerator.Generator
	Notifier  Notifier
	Recorder  ActivityRecorder
	Locker    lock.Locker
	LockTTL   time.Duration
}

// Service owns stock quantities and the transfer workflow.
type Service struct {
	txm      tx.Manager
	repo     Repository
	sites    SiteLedger
	numbers  numerator.Generator
	notifier Notifier
	recorder ActivityRecorder
	locker   lock.Locker
	lockTTL  time.Duration
}

// NewService creates a stock service.
func NewService(d Deps) *Service {
	if d.Locker == nil {
		d.Locker = lock.Noop{}
	}
	if d.LockTTL <= 0 {
		d.LockTTL = 10 * time.Second
	}
	return &Service{
		txm:      d.TxManager,
		repo:     d.Repo,
		sites:    d.Sites,
		numbers:  d.Numerator,
		notifier: d.Notifier,
		recorder: d.Recorder,
		locker:   d.Locker,
		lockTTL:  d.LockTTL,
	}
}

// Receive credits material to a site line (or the pool) and logs a receipt.
func (s *Service) Receive(ctx context.Context, a actor.Actor, in ReceiveInput) (*Stock, error) {
	if err := a.Authorize(actor.ActionReceiveStock); err != nil {
		return nil, err
	}
	ident, err := normalizeIdentity(in.Name, in.Category, in.Unit)
	if err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be positive")
	}
	if in.UnitCost.IsNegative() {
		return nil, apperror.NewFieldValidation("unitCost", "unit cost cannot be negative")
	}

	var line *Stock
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.SiteID != nil {
			if _, err := s.sites.Get(ctx, *in.SiteID); err != nil {
				return err
			}
		}
		var err error
		line, err = s.repo.CreditLine(ctx, in.SiteID, ident, in.UnitCost, in.Quantity)
		if err != nil {
			return fmt.Errorf("credit stock line: %w", err)
		}
		m := s.movement(a, line, MovementReceipt, in.Quantity, nil, in.Note)
		m.RelatedID = in.RelatedID
		if err := s.repo.AppendMovement(ctx, m); err != nil {
			return fmt.Errorf("append receipt: %w", err)
		}
		return s.record(ctx, a, activity.ActionReceive, entityStock, line.ID, m)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Consume removes quantity from a line. It fails with INSUFFICIENT_STOCK and
// changes nothing when the line holds less than qty.
func (s *Service) Consume(ctx context.Context, a actor.Actor, stockID id.ID, qty types.Quantity, note string) (*Stock, error) {
	if err := a.Authorize(actor.ActionConsumeStock); err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be positive")
	}

	var line *Stock
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.decrement(ctx, stockID, qty); err != nil {
			return err
		}
		var err error
		line, err = s.repo.GetByID(ctx, stockID)
		if err != nil {
			return err
		}
		m := s.movement(a, line, MovementConsumption, qty, nil, note)
		if err := s.repo.AppendMovement(ctx, m); err != nil {
			return fmt.Errorf("append consumption: %w", err)
		}
		return s.record(ctx, a, activity.ActionConsume, entityStock, stockID, m)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RequestTransfer creates a transfer in requested status and, after commit,
// asks the manager of the source site (or of the destination when there is no
// source) to decide.
func (s *Service) RequestTransfer(ctx context.Context, a actor.Actor, in RequestTransferInput) (*Transfer, error) {
	if err := a.Authorize(actor.ActionRequestTransfer); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be positive")
	}
	if id.IsNil(in.ToSiteID) {
		return nil, apperror.NewFieldValidation("toSiteId", "destination site is required")
	}
	if in.FromSiteID != nil && *in.FromSiteID == in.ToSiteID {
		return nil, apperror.NewFieldValidation("toSiteId", "source and destination must differ")
	}

	var t *Transfer
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		line, err := s.repo.GetByID(ctx, in.StockID)
		if err != nil {
			return err
		}
		if !id.Equal(in.FromSiteID, line.SiteID) {
			return apperror.NewFieldValidation("fromSiteId", "source site does not hold this stock line").
				WithDetail("stock_site_id", line.SiteID)
		}
		toSite, err := s.sites.Get(ctx, in.ToSiteID)
		if err != nil {
			return err
		}

		number, err := numerator.Issue(ctx, s.numbers, numerator.Transfers)
		if err != nil {
			return fmt.Errorf("transfer number: %w", err)
		}
		t = &Transfer{
			ID:          id.New(),
			Number:      number,
			StockID:     line.ID,
			Quantity:    in.Quantity,
			FromSiteID:  in.FromSiteID,
			ToSiteID:    in.ToSiteID,
			Status:      TransferRequested,
			RequestedBy: a.UserID(),
			Note:        strings.TrimSpace(in.Note),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.CreateTransfer(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := s.record(ctx, a, activity.ActionRequest, entityTransfer, t.ID, t); err != nil {
			return err
		}

		approver := toSite.ManagerID
		if in.FromSiteID != nil {
			fromSite, err := s.sites.Get(ctx, *in.FromSiteID)
			if err != nil {
				return err
			}
			approver = fromSite.ManagerID
		}
		if approver != nil {
			s.emitAfterCommit(ctx, notification.NotifyInput{
				UserID:    *approver,
				Type:      notification.TypeTransferRequest,
				RelatedID: id.Ptr(t.ID),
				Message: fmt.Sprintf("Transfer %s requests %s %s of %s to %s",
					t.Number, t.Quantity, line.Unit, line.Name, toSite.Name),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transfer requested",
		"transfer_id", t.ID,
		"number", t.Number,
		"stock_id", t.StockID,
		"quantity", t.Quantity.String(),
	)
	return t, nil
}

// Decide approves or rejects a requested transfer exactly once.
//
// Approval runs as one unit: conditional decrement of the source (when there
// is one), credit of the destination line, the movement pair, a
// stock_transfer site expense for costed lines and the conditional status
// flip. Any failure leaves every quantity and status as it was.
func (s *Service) Decide(ctx context.Context, a actor.Actor, transferID id.ID, in DecideInput) (*Transfer, error) {
	if err := a.Authorize(actor.ActionDecideTransfer); err != nil {
		return nil, err
	}
	status, ok := in.Decision.Status()
	if !ok {
		return nil, apperror.NewFieldValidation("decision", "decision must be approve or reject")
	}

	lk, err := s.locker.Obtain(ctx, lock.Key("transfer", transferID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release transfer lock", "transfer_id", transferID, "error", err)
		}
	}()

	var t *Transfer
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status != TransferRequested {
			return apperror.NewInvalidState(entityTransfer, transferID, string(t.Status), string(in.Decision))
		}

		completion := Completion{
			Status:    status,
			DecidedBy: a.UserID(),
			DecidedAt: time.Now().UTC(),
			Note:      strings.TrimSpace(in.Note),
		}
		if status == TransferApproved {
			dest, err := s.move(ctx, a, t)
			if err != nil {
				return err
			}
			completion.DestStockID = id.Ptr(dest.ID)
		}

		done, err := s.repo.CompleteTransfer(ctx, transferID, completion)
		if err != nil {
			return fmt.Errorf("complete transfer: %w", err)
		}
		if !done {
			return apperror.NewInvalidState(entityTransfer, transferID, string(t.Status), string(in.Decision))
		}

		t.Status = completion.Status
		t.DecidedBy = id.Ptr(completion.DecidedBy)
		t.DecidedAt = &completion.DecidedAt
		t.DestStockID = completion.DestStockID
		t.DecisionNote = completion.Note

		action := activity.ActionApprove
		if status == TransferRejected {
			action = activity.ActionReject
		}
		if err := s.record(ctx, a, action, entityTransfer, t.ID, t); err != nil {
			return err
		}

		s.afterDecision(ctx, a, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transfer decided",
		"transfer_id", t.ID,
		"number", t.Number,
		"status", t.Status,
	)
	return t, nil
}

// move performs the quantity side of an approval and returns the credited
// destination line.
func (s *Service) move(ctx context.Context, a actor.Actor, t *Transfer) (*Stock, error) {
	source, err := s.repo.GetByID(ctx, t.StockID)
	if err != nil {
		return nil, err
	}

	// A pool line (no fromSite) is a source like any other.
	if err := s.decrement(ctx, source.ID, t.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.AppendMovement(ctx, s.movement(a, source, MovementTransferOut, t.Quantity, &t.ID, t.Note)); err != nil {
		return nil, fmt.Errorf("append transfer_out: %w", err)
	}

	dest, err := s.repo.CreditLine(ctx, id.Ptr(t.ToSiteID), source.Identity(), source.UnitCost, t.Quantity)
	if err != nil {
		return nil, fmt.Errorf("credit destination line: %w", err)
	}
	if err := s.repo.AppendMovement(ctx, s.movement(a, dest, MovementTransferIn, t.Quantity, &t.ID, t.Note)); err != nil {
		return nil, fmt.Errorf("append transfer_in: %w", err)
	}

	if source.UnitCost.IsPositive() {
		_, err := s.sites.PostExpense(ctx, a, siteledger.PostExpenseInput{
			SiteID:    t.ToSiteID,
			Amount:    t.Quantity.Cost(source.UnitCost),
			Type:      siteledger.TypeStockTransfer,
			RelatedID: id.Ptr(t.ID),
		})
		if err != nil {
			return nil, err
		}
	}
	return dest, nil
}

// afterDecision mirrors the outcome onto pending notifications and tells the
// requester, once the decision has committed.
func (s *Service) afterDecision(ctx context.Context, a actor.Actor, t *Transfer) {
	if s.notifier == nil {
		return
	}
	outcome := notification.StatusApproved
	if t.Status == TransferRejected {
		outcome = notification.StatusRejected
	}
	by := a.UserID()
	transfer := *t

	tx.AfterCommit(ctx, func(ctx context.Context) {
		if _, err := s.notifier.ResolveRelated(ctx, transfer.ID, outcome, &by); err != nil {
			logger.Warn(ctx, "resolve transfer notifications", "transfer_id", transfer.ID, "error", err)
		}
		s.notifier.Emit(ctx, notification.NotifyInput{
			UserID:    transfer.RequestedBy,
			Type:      notification.TypeTransferDecision,
			RelatedID: id.Ptr(transfer.ID),
			Message:   fmt.Sprintf("Transfer %s was %s", transfer.Number, transfer.Status),
		})
	})
}

func (s *Service) decrement(ctx context.Context, stockID id.ID, qty types.Quantity) error {
	ok, err := s.repo.DecrementIfAvailable(ctx, stockID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ok {
		return nil
	}
	line, err := s.repo.GetByID(ctx, stockID)
	if err != nil {
		return err
	}
	return apperror.NewInsufficientStock(stockID.String(), qty.String(), line.Quantity.String())
}

func (s *Service) movement(a actor.Actor, line *Stock, kind MovementKind, qty types.Quantity, transferID *id.ID, note string) *Movement {
	return &Movement{
		ID:         id.New(),
		StockID:    line.ID,
		SiteID:     line.SiteID,
		Kind:       kind,
		Quantity:   qty,
		TransferID: transferID,
		ActorID:    a.UserID(),
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Service) emitAfterCommit(ctx context.Context, in notification.NotifyInput) {
	if s.notifier == nil {
		return
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Emit(ctx, in)
	})
}

func (s *Service) record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Record(ctx, a, action, entityType, entityID, payload)
}

// Get returns a stock line.
func (s *Service) Get(ctx context.Context, stockID id.ID) (*Stock, error) {
	return s.repo.GetByID(ctx, stockID)
}

// List returns stock lines.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Stock, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// ListBySite returns the lines held at a site.
func (s *Service) ListBySite(ctx context.Context, siteID id.ID) ([]*Stock, error) {
	return s.List(ctx, ListFilter{SiteID: &siteID, Limit: 500})
}

// GetTransfer returns a transfer.
func (s *Service) GetTransfer(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.repo.GetTransfer(ctx, transferID)
}

// ListTransfers returns transfers, newest first.
func (s *Service) ListTransfers(ctx context.Context, filter TransferFilter) ([]*Transfer, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListTransfers(ctx, filter)
}

// Movements returns the movement log of a line, oldest first.
func (s *Service) Movements(ctx context.Context, stockID id.ID, limit int) ([]*Movement, error) {
	if _, err := s.repo.GetByID(ctx, stockID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	return s.repo.ListMovements(ctx, stockID, limit)
}

// CheckConservation verifies that the quantity of the line's material across
// all lines equals receipts minus consumptions.
// Lines and movements are read from one snapshot.
func (s *Service) CheckConservation(ctx context.Context, stockID id.ID) (*Conservation, error) {
	var c *Conservation
	err := tx.Snapshot(ctx, s.txm, func(ctx context.Context) error {
		line, err := s.repo.GetByID(ctx, stockID)
		if err != nil {
			return err
		}
		totals, err := s.repo.IdentityTotals(ctx, line.Identity())
		if err != nil {
			return err
		}
		c = &Conservation{
			Identity: line.Identity(),
			OnHand:   totals.OnHand,
			Received: totals.Received,
			Consumed: totals.Consumed,
			Balanced: totals.OnHand == totals.Received-totals.Consumed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func normalizeIdentity(name, category, unit string) (Identity, error) {
	ident := Identity{
		Name:     strings.TrimSpace(name),
		Category: strings.TrimSpace(category),
		Unit:     strings.TrimSpace(unit),
	}
	if ident.Name == "" {
		return ident, apperror.NewFieldValidation("name", "material name is required")
	}
	if ident.Unit == "" {
		return ident, apperror.NewFieldValidation("unit", "unit is required")
	}
	return ident, nil
}
