// Package wage computes payable wages from attendance and performs the
// one-way attendance-paid transition.
package wage

import (
	"context"
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// AttendanceStatus is 1 for present and 0 for absent.
type AttendanceStatus int

const (
	Absent  AttendanceStatus = 0
	Present AttendanceStatus = 1
)

// Employee is a wage earner.
type Employee struct {
	ID        id.ID       `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Trade     string      `db:"trade" json:"trade"`
	DailyWage types.Money `db:"daily_wage" json:"dailyWage"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// Attendance is one day of one employee at one site. DailyWage is a snapshot
// of the employee's wage when the day was marked.
type Attendance struct {
	ID         id.ID            `db:"id" json:"id"`
	EmployeeID id.ID            `db:"employee_id" json:"employeeId"`
	SiteID     id.ID            `db:"site_id" json:"siteId"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	DailyWage  types.Money      `db:"daily_wage" json:"dailyWage"`
	IsPaid     bool             `db:"is_paid" json:"isPaid"`
	PaidAt     *time.Time       `db:"paid_at" json:"paidAt,omitempty"`
	PaidBy     *id.ID           `db:"paid_by" json:"paidBy,omitempty"`
	MarkedBy   id.ID            `db:"marked_by" json:"markedBy"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}

// Payable is the wage this record contributes.
func (a *Attendance) Payable() types.Money {
	if a.Status != Present {
		return types.Zero()
	}
	return a.DailyWage
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Salary is the outcome of CalculateSalary.
type Salary struct {
	EmployeeID  id.ID       `json:"employeeId"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	DaysPresent int         `json:"daysPresent"`
	Amount      types.Money `json:"amount"`
	PaidAmount  types.Money `json:"paidAmount"`
}

// SitePosting is the aggregate expense posted to one site by a payment batch.
type SitePosting struct {
	SiteID  id.ID       `json:"siteId"`
	Amount  types.Money `json:"amount"`
	Records int         `json:"records"`
}

// PaymentBatch is the outcome of MarkAttendancesPaid.
type PaymentBatch struct {
	ID       id.ID         `json:"id"`
	Count    int           `json:"count"`
	Total    types.Money   `json:"total"`
	Postings []SitePosting `json:"postings"`
	PaidBy   id.ID         `json:"paidBy"`
	PaidAt   time.Time     `json:"paidAt"`
}

// CreateEmployeeInput describes a new employee.
type CreateEmployeeInput struct {
	Name      string
	Trade     string
	DailyWage types.Money
}

// MarkAttendanceInput records one day.
type MarkAttendanceInput struct {
	EmployeeID id.ID
	SiteID     id.ID
	Date       time.Time
	Status     AttendanceStatus
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	EmployeeID *id.ID
	SiteID     *id.ID
	From       *time.Time
	To         *time.Time
	IsPaid     *bool
	Limit      int
	Offset     int
}

// Repository persists employees and attendance.
type Repository interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, employeeID id.ID) (*Employee, error)
	ListEmployees(ctx context.Context, limit, offset int) ([]*Employee, error)

	// CreateAttendance fails with DUPLICATE_ENTRY for an existing
	// (employee, date).
	CreateAttendance(ctx context.Context, a *Attendance) error
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]*Attendance, error)
	// LockAttendances returns the records that exist among ids with row locks
	// held until the unit ends.
	LockAttendances(ctx context.Context, ids []id.ID) ([]*Attendance, error)
	// MarkPaid flips is_paid for unpaid records among ids and returns how many
	// it changed.
	MarkPaid(ctx context.Context, ids []id.ID, by id.ID, at time.Time) (int, error)
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
