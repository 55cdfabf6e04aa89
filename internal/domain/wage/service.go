package wage

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
	"buildledger/internal/domain/siteledger"
	"buildledger/pkg/logger"
)

// SiteLedger is the part of the site ledger wages post to.
type SiteLedger interface {
	Get(ctx context.Context, siteID id.ID) (*siteledger.Site, error)
	PostExpense(ctx context.Context, a actor.Actor, in siteledger.PostExpenseInput) (*siteledger.Entry, error)
}

// ActivityRecorder writes activity entries inside the current unit.
type ActivityRecorder interface {
	Record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error
}

// Service manages employees, attendance and wage payment.
type Service struct {
	txm      tx.Manager
	repo     Repository
	sites    SiteLedger
	recorder ActivityRecorder
}

// NewService creates a wage service.
func NewService(txm tx.Manager, repo Repository, sites SiteLedger, recorder ActivityRecorder) *Service {
	return &Service{txm: txm, repo: repo, sites: sites, recorder: recorder}
}

// CreateEmployee registers an employee.
func (s *Service) CreateEmployee(ctx context.Context, a actor.Actor, in CreateEmployeeInput) (*Employee, error) {
	if err := a.Authorize(actor.ActionManageEmployees); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewFieldValidation("name", "employee name is required")
	}
	if !in.DailyWage.IsPositive() {
		return nil, apperror.NewFieldValidation("dailyWage", "daily wage must be positive")
	}

	e := &Employee{
		ID:        id.New(),
		Name:      in.Name,
		Trade:     strings.TrimSpace(in.Trade),
		DailyWage: in.DailyWage,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateEmployee(ctx, e); err != nil {
			return err
		}
		return s.record(ctx, a, activity.ActionCreate, "employee", e.ID, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEmployee returns an employee.
func (s *Service) GetEmployee(ctx context.Context, employeeID id.ID) (*Employee, error) {
	return s.repo.GetEmployee(ctx, employeeID)
}

// ListEmployees returns employees by name.
func (s *Service) ListEmployees(ctx context.Context, limit, offset int) ([]*Employee, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListEmployees(ctx, limit, offset)
}

// MarkAttendance records one day for an employee at a site, snapshotting the
// employee's current daily wage.
func (s *Service) MarkAttendance(ctx context.Context, a actor.Actor, in MarkAttendanceInput) (*Attendance, error) {
	if err := a.Authorize(actor.ActionMarkAttendance); err != nil {
		return nil, err
	}
	if in.Status != Present && in.Status != Absent {
		return nil, apperror.NewFieldValidation("status", "status must be 0 or 1")
	}
	if in.Date.IsZero() {
		return nil, apperror.NewFieldValidation("date", "date is required")
	}

	var rec *Attendance
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		emp, err := s.repo.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.Active {
			return apperror.NewInvalidState("employee", emp.ID, "inactive", "mark attendance")
		}
		if _, err := s.sites.Get(ctx, in.SiteID); err != nil {
			return err
		}
		rec = &Attendance{
			ID:         id.New(),
			EmployeeID: emp.ID,
			SiteID:     in.SiteID,
			Date:       Day(in.Date),
			Status:     in.Status,
			DailyWage:  emp.DailyWage,
			MarkedBy:   a.UserID(),
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.repo.CreateAttendance(ctx, rec); err != nil {
			return err
		}
		return s.record(ctx, a, activity.ActionMarkAttendance, "attendance", rec.ID, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAttendance returns attendance records by date.
func (s *Service) ListAttendance(ctx context.Context, filter AttendanceFilter) ([]*Attendance, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 200
	}
	return s.repo.ListAttendance(ctx, filter)
}

// CalculateSalary sums the wage snapshots of present days in [From, To],
// paid or not. It changes nothing.
func (s *Service) CalculateSalary(ctx context.Context, a actor.Actor, employeeID id.ID, r DateRange) (*Salary, error) {
	if err := a.Authorize(actor.ActionCalculateSalary); err != nil {
		return nil, err
	}
	from, to := Day(r.From), Day(r.To)
	if from.After(to) {
		return nil, apperror.NewValidation("from must not be after to").
			WithDetail("from", from.Format(time.DateOnly)).
			WithDetail("to", to.Format(time.DateOnly))
	}
	if _, err := s.repo.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListAttendance(ctx, AttendanceFilter{
		EmployeeID: &employeeID,
		From:       &from,
		To:         &to,
	})
	if err != nil {
		return nil, err
	}

	salary := &Salary{
		EmployeeID: employeeID,
		From:       from,
		To:         to,
		Amount:     types.Zero(),
		PaidAmount: types.Zero(),
	}
	for _, rec := range records {
		if rec.Status != Present {
			continue
		}
		salary.DaysPresent++
		salary.Amount = salary.Amount.Add(rec.DailyWage)
		if rec.IsPaid {
			salary.PaidAmount = salary.PaidAmount.Add(rec.DailyWage)
		}
	}
	return salary, nil
}

// MarkAttendancesPaid pays a batch all-or-nothing. Every id must exist and be
// unpaid; otherwise nothing changes. The batch posts one attendance expense
// per site for the present days it pays.
func (s *Service) MarkAttendancesPaid(ctx context.Context, a actor.Actor, ids []id.ID) (*PaymentBatch, error) {
	if err := a.Authorize(actor.ActionPayWages); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperror.NewFieldValidation("ids", "at least one attendance id is required")
	}
	unique := id.Unique(ids)

	batch := &PaymentBatch{
		ID:     id.New(),
		Count:  len(unique),
		Total:  types.Zero(),
		PaidBy: a.UserID(),
		PaidAt: time.Now().UTC(),
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		records, err := s.repo.LockAttendances(ctx, unique)
		if err != nil {
			return fmt.Errorf("lock attendances: %w", err)
		}
		found := make(map[id.ID]*Attendance, len(records))
		for _, rec := range records {
			found[rec.ID] = rec
		}
		for _, attendanceID := range unique {
			rec, ok := found[attendanceID]
			if !ok {
				return apperror.NewNotFound("attendance", attendanceID)
			}
			if rec.IsPaid {
				return apperror.NewInvalidState("attendance", attendanceID, "paid", "mark paid")
			}
		}

		changed, err := s.repo.MarkPaid(ctx, unique, batch.PaidBy, batch.PaidAt)
		if err != nil {
			return fmt.Errorf("mark attendances paid: %w", err)
		}
		if changed != len(unique) {
			return apperror.NewInvalidState("attendance", batch.ID, "partially paid", "mark paid").
				WithDetail("expected", len(unique)).
				WithDetail("changed", changed)
		}

		batch.Postings = aggregateBySite(records)
		for _, p := range batch.Postings {
			batch.Total = batch.Total.Add(p.Amount)
			if !p.Amount.IsPositive() {
				continue
			}
			if _, err := s.sites.PostExpense(ctx, a, siteledger.PostExpenseInput{
				SiteID:    p.SiteID,
				Amount:    p.Amount,
				Type:      siteledger.TypeAttendance,
				RelatedID: id.Ptr(batch.ID),
			}); err != nil {
				return err
			}
		}
		return s.record(ctx, a, activity.ActionPay, "attendance_batch", batch.ID, map[string]any{
			"ids":   unique,
			"total": batch.Total,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "attendances paid",
		"batch_id", batch.ID,
		"count", batch.Count,
		"total", batch.Total.String(),
	)
	return batch, nil
}

// aggregateBySite sums payable wages per site, ordered by site id.
func aggregateBySite(records []*Attendance) []SitePosting {
	bySite := make(map[id.ID]*SitePosting)
	for _, rec := range records {
		p, ok := bySite[rec.SiteID]
		if !ok {
			p = &SitePosting{SiteID: rec.SiteID, Amount: types.Zero()}
			bySite[rec.SiteID] = p
		}
		p.Amount = p.Amount.Add(rec.Payable())
		p.Records++
	}

	siteIDs := make([]id.ID, 0, len(bySite))
	for siteID := range bySite {
		siteIDs = append(siteIDs, siteID)
	}
	siteIDs = id.Unique(siteIDs)

	out := make([]SitePosting, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		out = append(out, *bySite[siteID])
	}
	return out
}

func (s *Service) record(ctx context.Context, a actor.Actor, action activity.Action, entityType string, entityID id.ID, payload any) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Record(ctx, a, action, entityType, entityID, payload)
}
