package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/numerator"
	"buildledger/internal/core/tx"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/domain/stock"
	"buildledger/pkg/logger"
)

// SiteLedger is the part of the site ledger procurement posts to.
type SiteLedger interface {
	Get(ctx context.Context, siteID id.ID) (*siteledger.Site, error)
	PostExpense(ctx context.Context, a actor.Actor, in siteledger.PostExpenseInput) (*siteledger.Entry, error)
}

// StockReceiver credits purchased materials into site stock.
type StockReceiver interface {
	Receive(ctx context.Context, a actor.Actor, in stock.ReceiveInput) (*stock.Stock, error)
}

// Notifier delivers best-effort notifications.
type Notifier interface {
	Emit(ctx context.Context, in notification.NotifyInput)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Service manages purchases and rentals.
type Service struct {
	txm      tx.Manager
	repo     Repository
	sites    SiteLedger
	stock    StockReceiver
	numbers  numerator.Generator
	notifier Notifier
	recorder ActivityRecorder
}

// NewService creates a procurement service. notifier and recorder may be nil.
func NewService(txm tx.Manager, repo Repository, sites SiteLedger, stockSvc StockReceiver, numbers numerator.Generator, notifier Notifier, recorder ActivityRecorder) *Service {
	return &Service{
		txm:      txm,
		repo:     repo,
		sites:    sites,
		stock:    stockSvc,
		numbers:  numbers,
		notifier: notifier,
		recorder: recorder,
	}
}

// CreatePurchase records a pending purchase.
func (s *Service) CreatePurchase(ctx context.Context, a actor.Actor, in CreatePurchaseInput) (*Purchase, error) {
	if err := a.Authorize(actor.ActionCreatePurchase); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Vendor) == "" {
		return nil, apperror.NewFieldValidation("vendor", "vendor is required")
	}
	if len(in.Items) == 0 {
		return nil, apperror.NewFieldValidation("items", "at least one item is required")
	}

	items := make([]Item, len(in.Items))
	total := types.Zero()
	for i, it := range in.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d].name", i), "item name is required")
		}
		if !it.Quantity.IsPositive() {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if it.UnitPrice.IsNegative() {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d].unitPrice", i), "unit price cannot be negative")
		}
		if it.Stocked && strings.TrimSpace(it.Unit) == "" {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d].unit", i), "stocked items need a unit")
		}
		it.Amount = it.Quantity.Cost(it.UnitPrice).Round(2)
		total = total.Add(it.Amount)
		items[i] = it
	}
	if !total.IsPositive() {
		return nil, apperror.NewFieldValidation("items", "purchase total must be positive")
	}
	if in.Payment.Method == "" {
		in.Payment.Method = PaymentCash
	}

	var p *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.sites.Get(ctx, in.SiteID); err != nil {
			return err
		}
		number, err := numerator.Issue(ctx, s.numbers, numerator.Purchases)
		if err != nil {
			return fmt.Errorf("purchase number: %w", err)
		}
		p = &Purchase{
			ID:          id.New(),
			Number:      number,
			SiteID:      in.SiteID,
			Vendor:      strings.TrimSpace(in.Vendor),
			Items:       items,
			TotalAmount: total,
			Payment:     in.Payment,
			Status:      StatusPending,
			CreatedBy:   a.UserID(),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.CreatePurchase(ctx, p); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		return s.record(ctx, a, activity.ActionCreate, "purchase", p.ID, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// VerifyPurchase verifies a pending purchase once: it posts a purchase
// expense to the site and receives stocked items into site stock.
func (s *Service) VerifyPurchase(ctx context.Context, a actor.Actor, purchaseID id.ID) (*Purchase, error) {
	if err := a.Authorize(actor.ActionVerifyPurchase); err != nil {
		return nil, err
	}

	var p *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetPurchase(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return apperror.NewInvalidState("purchase", purchaseID, string(p.Status), "verify")
		}

		v := Verification{By: a.UserID(), At: time.Now().UTC()}
		ok, err := s.repo.VerifyPurchase(ctx, purchaseID, v)
		if err != nil {
			return fmt.Errorf("verify purchase: %w", err)
		}
		if !ok {
			return apperror.NewInvalidState("purchase", purchaseID, string(p.Status), "verify")
		}
		p.Status = StatusVerified
		p.VerifiedBy = id.Ptr(v.By)
		p.VerifiedAt = &v.At

		if _, err := s.sites.PostExpense(ctx, a, siteledger.PostExpenseInput{
			SiteID:    p.SiteID,
			Amount:    p.TotalAmount,
			Type:      siteledger.TypePurchase,
			RelatedID: id.Ptr(p.ID),
		}); err != nil {
			return err
		}

		for _, it := range p.Items {
			if !it.Stocked {
				continue
			}
			if _, err := s.stock.Receive(ctx, actor.System(), stock.ReceiveInput{
				SiteID:    id.Ptr(p.SiteID),
				Name:      it.Name,
				Category:  it.Category,
				Unit:      it.Unit,
				Quantity:  it.Quantity,
				UnitCost:  it.UnitPrice,
				RelatedID: id.Ptr(p.ID),
				Note:      "purchase " + p.Number,
			}); err != nil {
				return fmt.Errorf("receive %s: %w", it.Name, err)
			}
		}
		if s.notifier != nil && p.CreatedBy != a.UserID() {
			in := notification.NotifyInput{
				UserID:    p.CreatedBy,
				Type:      notification.TypePurchaseVerified,
				RelatedID: id.Ptr(p.ID),
				Message:   fmt.Sprintf("Purchase %s from %s was verified", p.Number, p.Vendor),
			}
			tx.AfterCommit(ctx, func(ctx context.Context) { s.notifier.Emit(ctx, in) })
		}
		return s.record(ctx, a, activity.ActionVerify, "purchase", p.ID, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase verified", "purchase_id", p.ID, "number", p.Number, "total", p.TotalAmount.String())
	return p, nil
}

// GetPurchase returns a purchase.
func (s *Service) GetPurchase(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return s.repo.GetPurchase(ctx, purchaseID)
}

// ListPurchases returns purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]*Purchase, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListPurchases(ctx, filter)
}

// CreateRental records a pending rental.
func (s *Service) CreateRental(ctx context.Context, a actor.Actor, in CreateRentalInput) (*Rental, error) {
	if err := a.Authorize(actor.ActionCreateRental); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Machinery) == "" {
		return nil, apperror.NewFieldValidation("machinery", "machinery is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if in.StartDate.IsZero() {
		return nil, apperror.NewFieldValidation("startDate", "start date is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, apperror.NewFieldValidation("endDate", "end date is before start date")
	}

	var r *Rental
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.SiteID != nil {
			if _, err := s.sites.Get(ctx, *in.SiteID); err != nil {
				return err
			}
		}
		number, err := numerator.Issue(ctx, s.numbers, numerator.Rentals)
		if err != nil {
			return fmt.Errorf("rental number: %w", err)
		}
		r = &Rental{
			ID:        id.New(),
			Number:    number,
			SiteID:    in.SiteID,
			Machinery: strings.TrimSpace(in.Machinery),
			Vendor:    strings.TrimSpace(in.Vendor),
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Amount:    in.Amount,
			Status:    StatusPending,
			CreatedBy: a.UserID(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.CreateRental(ctx, r); err != nil {
			return fmt.Errorf("create rental: %w", err)
		}
		return s.record(ctx, a, activity.ActionCreate, "machinery_rental", r.ID, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// VerifyRental verifies a pending rental once. Only site-scoped rentals post
// a rental expense.
func (s *Service) VerifyRental(ctx context.Context, a actor.Actor, rentalID id.ID) (*Rental, error) {
	if err := a.Authorize(actor.ActionVerifyRental); err != nil {
		return nil, err
	}

	var r *Rental
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.GetRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return apperror.NewInvalidState("machinery_rental", rentalID, string(r.Status), "verify")
		}
		v := Verification{By: a.UserID(), At: time.Now().UTC()}
		ok, err := s.repo.VerifyRental(ctx, rentalID, v)
		if err != nil {
			return fmt.Errorf("verify rental: %w", err)
		}
		if !ok {
			return apperror.NewInvalidState("machinery_rental", rentalID, string(r.Status), "verify")
		}
		r.Status = StatusVerified
		r.VerifiedBy = id.Ptr(v.By)
		r.VerifiedAt = &v.At

		if r.SiteID != nil {
			if _, err := s.sites.PostExpense(ctx, a, siteledger.PostExpenseInput{
				SiteID:    *r.SiteID,
				Amount:    r.Amount,
				Type:      siteledger.TypeRental,
				RelatedID: id.Ptr(r.ID),
			}); err != nil {
				return err
			}
		}
		return s.record(ctx, a, activity.ActionVerify, "machinery_rental", r.ID, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRental returns a rental.
func (s *Service) GetRental(ctx context.Context, rentalID id.ID) (*Rental, error) {
	return s.repo.GetRental(ctx, rentalID)
}

// ListRentals returns rentals, newest first.
func (s *Service) ListRentals(ctx context.Context, filter ListFilter) ([]*Rental, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListRentals(ctx, filter)
}

func (s *Service) record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Record(ctx, a, action, entityType, entityID, payload)
}
