package ledger_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/contractor"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	contractorsTable  = "contractors"
	assignmentsTable  = "contractor_sites"
	contractorTxTable = "contractor_transactions"
)

var (
	contractorColumns   = postgres.Columns[contractor.Contractor]()
	assignmentColumns   = postgres.Columns[contractor.Assignment]()
	contractorTxColumns = postgres.Columns[contractor.Transaction]()
)

// ContractorRepo implements contractor.Repository.
type ContractorRepo struct {
	postgres.Base
}

var _ contractor.Repository = (*ContractorRepo)(nil)

// NewContractorRepo creates a contractor repository.
func NewContractorRepo(txm *postgres.TxManager) *ContractorRepo {
	return &ContractorRepo{Base: postgres.NewBase(txm)}
}

func (r *ContractorRepo) Create(ctx context.Context, c *contractor.Contractor) error {
	return r.Insert(ctx, contractorsTable, c)
}

func (r *ContractorRepo) GetByID(ctx context.Context, contractorID id.ID) (*contractor.Contractor, error) {
	var c contractor.Contractor
	q := r.Builder().Select(contractorColumns...).From(contractorsTable).Where(squirrel.Eq{"id": contractorID})
	if err := r.Get(ctx, &c, q, "contractor", contractorID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractorRepo) List(ctx context.Context, filter contractor.ListFilter) ([]*contractor.Contractor, error) {
	q := r.Builder().Select(prefixed("c", contractorColumns)...).From(contractorsTable + " c").OrderBy("c.name", "c.id")
	if filter.SiteID != nil {
		q = q.Join(assignmentsTable+" cs ON cs.contractor_id = c.id").Where(squirrel.Eq{"cs.site_id": *filter.SiteID})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where(squirrel.ILike{"c.name": "%" + s + "%"})
	}
	var out []*contractor.Contractor
	if err := r.Select(ctx, &out, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	return out, nil
}

func (r *ContractorRepo) ListAssignments(ctx context.Context, contractorID id.ID) ([]*contractor.Assignment, error) {
	q := r.Builder().Select(assignmentColumns...).From(assignmentsTable).
		Where(squirrel.Eq{"contractor_id": contractorID}).
		OrderBy("assigned_at", "site_id")
	out := []*contractor.Assignment{}
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

func (r *ContractorRepo) ListAllAssignments(ctx context.Context, limit, offset int) ([]*contractor.Assignment, error) {
	q := r.Builder().Select(assignmentColumns...).From(assignmentsTable).OrderBy("contractor_id", "site_id")
	var out []*contractor.Assignment
	if err := r.Select(ctx, &out, postgres.Page(q, limit, offset)); err != nil {
		return nil, fmt.Errorf("list all assignments: %w", err)
	}
	return out, nil
}

func (r *ContractorRepo) GetAssignmentForUpdate(ctx context.Context, contractorID, siteID id.ID) (*contractor.Assignment, error) {
	var a contractor.Assignment
	q := postgres.ForUpdate(r.Builder().Select(assignmentColumns...).From(assignmentsTable).
		Where(squirrel.Eq{"contractor_id": contractorID, "site_id": siteID}))
	if err := r.Get(ctx, &a, q, "contractor_assignment", contractorID.String()+"/"+siteID.String()); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ContractorRepo) AddAssignment(ctx context.Context, a *contractor.Assignment) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Insert(assignmentsTable).
		SetMap(postgres.Row(a)).
		Suffix("ON CONFLICT (contractor_id, site_id) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("insert assignment: %w", err)
	}
	return n == 1, nil
}

func (r *ContractorRepo) AdjustBalance(ctx context.Context, contractorID, siteID id.ID, delta types.Money) (types.Money, error) {
	var balance types.Money
	err := r.Querier(ctx).QueryRow(ctx, `
		UPDATE contractor_sites SET balance = balance + $1
		WHERE contractor_id = $2 AND site_id = $3
		RETURNING balance
	`, delta, contractorID, siteID).Scan(&balance)
	if err != nil {
		return types.Zero(), notFoundOr(err, "contractor_assignment", contractorID.String()+"/"+siteID.String())
	}
	return balance, nil
}

func (r *ContractorRepo) SetBalance(ctx context.Context, contractorID, siteID id.ID, balance types.Money) error {
	_, err := r.Exec(ctx, r.Builder().Update(assignmentsTable).
		Set("balance", balance).
		Where(squirrel.Eq{"contractor_id": contractorID, "site_id": siteID}))
	if err != nil {
		return fmt.Errorf("set contractor balance: %w", err)
	}
	return nil
}

func (r *ContractorRepo) AppendTransaction(ctx context.Context, t *contractor.Transaction) error {
	return r.Insert(ctx, contractorTxTable, t)
}

func (r *ContractorRepo) ListTransactions(ctx context.Context, contractorID, siteID id.ID) ([]*contractor.Transaction, error) {
	q := r.Builder().Select(contractorTxColumns...).From(contractorTxTable).
		Where(squirrel.Eq{"contractor_id": contractorID, "site_id": siteID}).
		OrderBy("posted_at", "id")
	var out []*contractor.Transaction
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list contractor transactions: %w", err)
	}
	return out, nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
