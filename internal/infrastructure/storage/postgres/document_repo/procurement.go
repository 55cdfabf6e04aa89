// Package document_repo provides PostgreSQL repositories for procurement
// documents: purchases and machinery rentals.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/procurement"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	purchasesTable = "purchases"
	rentalsTable   = "machinery_rentals"
)

var (
	purchaseColumns = postgres.Columns[procurement.Purchase]()
	rentalColumns   = postgres.Columns[procurement.Rental]()
)

// ProcurementRepo implements procurement.Repository.
type ProcurementRepo struct {
	postgres.Base
}

var _ procurement.Repository = (*ProcurementRepo)(nil)

// NewProcurementRepo creates a procurement repository.
func NewProcurementRepo(txm *postgres.TxManager) *ProcurementRepo {
	return &ProcurementRepo{Base: postgres.NewBase(txm)}
}

func (r *ProcurementRepo) CreatePurchase(ctx context.Context, p *procurement.Purchase) error {
	err := r.Insert(ctx, purchasesTable, p)
	if postgres.IsUniqueViolation(err, "purchases_number_key") {
		return apperror.NewDuplicate("purchase", "number", p.Number)
	}
	return err
}

func (r *ProcurementRepo) GetPurchase(ctx context.Context, purchaseID id.ID) (*procurement.Purchase, error) {
	var p procurement.Purchase
	q := r.Builder().Select(purchaseColumns...).From(purchasesTable).Where(squirrel.Eq{"id": purchaseID})
	if err := r.Get(ctx, &p, q, "purchase", purchaseID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProcurementRepo) ListPurchases(ctx context.Context, filter procurement.ListFilter) ([]*procurement.Purchase, error) {
	q := r.filtered(r.Builder().Select(purchaseColumns...).From(purchasesTable), filter)
	var out []*procurement.Purchase
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return out, nil
}

func (r *ProcurementRepo) VerifyPurchase(ctx context.Context, purchaseID id.ID, v procurement.Verification) (bool, error) {
	return r.verify(ctx, purchasesTable, purchaseID, v)
}

func (r *ProcurementRepo) CreateRental(ctx context.Context, rental *procurement.Rental) error {
	err := r.Insert(ctx, rentalsTable, rental)
	if postgres.IsUniqueViolation(err, "machinery_rentals_number_key") {
		return apperror.NewDuplicate("machinery_rental", "number", rental.Number)
	}
	return err
}

func (r *ProcurementRepo) GetRental(ctx context.Context, rentalID id.ID) (*procurement.Rental, error) {
	var rental procurement.Rental
	q := r.Builder().Select(rentalColumns...).From(rentalsTable).Where(squirrel.Eq{"id": rentalID})
	if err := r.Get(ctx, &rental, q, "machinery_rental", rentalID); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *ProcurementRepo) ListRentals(ctx context.Context, filter procurement.ListFilter) ([]*procurement.Rental, error) {
	q := r.filtered(r.Builder().Select(rentalColumns...).From(rentalsTable), filter)
	var out []*procurement.Rental
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return out, nil
}

func (r *ProcurementRepo) VerifyRental(ctx context.Context, rentalID id.ID, v procurement.Verification) (bool, error) {
	return r.verify(ctx, rentalsTable, rentalID, v)
}

// verify is the verify-once guard shared by both documents.
func (r *ProcurementRepo) verify(ctx context.Context, table string, docID id.ID, v procurement.Verification) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Update(table).
		Set("status", procurement.StatusVerified).
		Set("verified_by", v.By).
		Set("verified_at", v.At).
		Where(squirrel.Eq{"id": docID, "status": procurement.StatusPending}))
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", table, err)
	}
	return n == 1, nil
}

func (r *ProcurementRepo) filtered(q squirrel.SelectBuilder, filter procurement.ListFilter) squirrel.SelectBuilder {
	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.SiteID != nil {
		q = q.Where(squirrel.Eq{"site_id": *filter.SiteID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	return postgres.Page(q, filter.Limit, filter.Offset)
}
