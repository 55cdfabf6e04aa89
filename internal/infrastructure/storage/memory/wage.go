package memory

import (
	"context"
	"sort"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/wage"
)

// WageRepo implements wage.Repository.
type WageRepo struct{ s *Store }

var _ wage.Repository = (*WageRepo)(nil)

// Wages returns the wage repository.
func (s *Store) Wages() *WageRepo { return &WageRepo{s: s} }

func (r *WageRepo) CreateEmployee(ctx context.Context, e *wage.Employee) error {
	return r.s.write(ctx, func(u *unit) error {
		if _, ok := r.s.employees[e.ID]; ok {
			return apperror.NewDuplicate("employee", "id", e.ID.String())
		}
		put(u, r.s.employees, e.ID, clone(e))
		return nil
	})
}

func (r *WageRepo) GetEmployee(ctx context.Context, employeeID id.ID) (*wage.Employee, error) {
	var out *wage.Employee
	err := r.s.read(ctx, func() error {
		v, ok := r.s.employees[employeeID]
		if !ok {
			return apperror.NewNotFound("employee", employeeID)
		}
		out = clone(v)
		return nil
	})
	return out, err
}

func (r *WageRepo) ListEmployees(ctx context.Context, limit, offset int) ([]*wage.Employee, error) {
	var out []*wage.Employee
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.employees {
			out = append(out, clone(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), err
}

func cloneAttendance(v *wage.Attendance) *wage.Attendance {
	c := clone(v)
	c.PaidAt = clone(v.PaidAt)
	c.PaidBy = clone(v.PaidBy)
	return c
}

func (r *WageRepo) CreateAttendance(ctx context.Context, a *wage.Attendance) error {
	return r.s.write(ctx, func(u *unit) error {
		for _, existing := range r.s.attendances {
			if existing.EmployeeID == a.EmployeeID && existing.Date.Equal(a.Date) {
				return apperror.NewDuplicate("attendance", "date", a.Date.Format(time.DateOnly))
			}
		}
		put(u, r.s.attendances, a.ID, cloneAttendance(a))
		return nil
	})
}

func (r *WageRepo) ListAttendance(ctx context.Context, filter wage.AttendanceFilter) ([]*wage.Attendance, error) {
	var out []*wage.Attendance
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.attendances {
			switch {
			case filter.EmployeeID != nil && v.EmployeeID != *filter.EmployeeID,
				filter.SiteID != nil && v.SiteID != *filter.SiteID,
				filter.From != nil && v.Date.Before(*filter.From),
				filter.To != nil && v.Date.After(*filter.To),
				filter.IsPaid != nil && v.IsPaid != *filter.IsPaid:
				continue
			}
			out = append(out, cloneAttendance(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID.String() < out[j].EmployeeID.String()
	})
	return page(out, filter.Limit, filter.Offset), err
}

func (r *WageRepo) LockAttendances(ctx context.Context, ids []id.ID) ([]*wage.Attendance, error) {
	var out []*wage.Attendance
	err := r.s.read(ctx, func() error {
		for _, attendanceID := range id.Unique(ids) {
			if v, ok := r.s.attendances[attendanceID]; ok {
				out = append(out, cloneAttendance(v))
			}
		}
		return nil
	})
	return out, err
}

func (r *WageRepo) MarkPaid(ctx context.Context, ids []id.ID, by id.ID, at time.Time) (int, error) {
	var changed int
	err := r.s.write(ctx, func(u *unit) error {
		for _, attendanceID := range id.Unique(ids) {
			v, ok := r.s.attendances[attendanceID]
			if !ok || v.IsPaid {
				continue
			}
			c := cloneAttendance(v)
			c.IsPaid = true
			c.PaidAt = &at
			c.PaidBy = id.Ptr(by)
			put(u, r.s.attendances, attendanceID, c)
			changed++
		}
		return nil
	})
	return changed, err
}
