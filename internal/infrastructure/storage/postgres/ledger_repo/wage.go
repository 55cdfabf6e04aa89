package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/wage"
	"buildledger/internal/infrastructure/storage/postgres"
)

const (
	employeesTable  = "employees"
	attendanceTable = "attendance"
)

var (
	employeeColumns   = postgres.Columns[wage.Employee]()
	attendanceColumns = postgres.Columns[wage.Attendance]()
)

// WageRepo implements wage.Repository.
type WageRepo struct {
	postgres.Base
}

var _ wage.Repository = (*WageRepo)(nil)

// NewWageRepo creates a wage repository.
func NewWageRepo(txm *postgres.TxManager) *WageRepo {
	return &WageRepo{Base: postgres.NewBase(txm)}
}

func (r *WageRepo) CreateEmployee(ctx context.Context, e *wage.Employee) error {
	return r.Insert(ctx, employeesTable, e)
}

func (r *WageRepo) GetEmployee(ctx context.Context, employeeID id.ID) (*wage.Employee, error) {
	var e wage.Employee
	q := r.Builder().Select(employeeColumns...).From(employeesTable).Where(squirrel.Eq{"id": employeeID})
	if err := r.Get(ctx, &e, q, "employee", employeeID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WageRepo) ListEmployees(ctx context.Context, limit, offset int) ([]*wage.Employee, error) {
	q := r.Builder().Select(employeeColumns...).From(employeesTable).OrderBy("name", "id")
	var out []*wage.Employee
	if err := r.Select(ctx, &out, postgres.Page(q, limit, offset)); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return out, nil
}

func (r *WageRepo) CreateAttendance(ctx context.Context, a *wage.Attendance) error {
	err := r.Insert(ctx, attendanceTable, a)
	if postgres.IsUniqueViolation(err, "attendance_employee_date_key") {
		return apperror.NewDuplicate("attendance", "date", a.Date.Format(time.DateOnly))
	}
	return err
}

func (r *WageRepo) ListAttendance(ctx context.Context, filter wage.AttendanceFilter) ([]*wage.Attendance, error) {
	q := r.Builder().Select(attendanceColumns...).From(attendanceTable).OrderBy("date", "employee_id")
	if filter.EmployeeID != nil {
		q = q.Where(squirrel.Eq{"employee_id": *filter.EmployeeID})
	}
	if filter.SiteID != nil {
		q = q.Where(squirrel.Eq{"site_id": *filter.SiteID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.To})
	}
	if filter.IsPaid != nil {
		q = q.Where(squirrel.Eq{"is_paid": *filter.IsPaid})
	}
	var out []*wage.Attendance
	if err := r.Select(ctx, &out, postgres.Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return out, nil
}

// LockAttendances locks rows in id order so concurrent batches cannot
// deadlock on overlapping ids.
func (r *WageRepo) LockAttendances(ctx context.Context, ids []id.ID) ([]*wage.Attendance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := postgres.ForUpdate(r.Builder().Select(attendanceColumns...).From(attendanceTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id"))
	var out []*wage.Attendance
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("lock attendance: %w", err)
	}
	return out, nil
}

func (r *WageRepo) MarkPaid(ctx context.Context, ids []id.ID, by id.ID, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.Exec(ctx, r.Builder().Update(attendanceTable).
		Set("is_paid", true).
		Set("paid_by", by).
		Set("paid_at", at).
		Where(squirrel.Eq{"id": ids, "is_paid": false}))
	if err != nil {
		return 0, fmt.Errorf("mark attendance paid: %w", err)
	}
	return int(n), nil
}
