package dto

import (
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/wage"
)

// CreateEmployeeRequest registers an employee.
type CreateEmployeeRequest struct {
	Name      string      `json:"name" binding:"required,max=200"`
	Trade     string      `json:"trade" binding:"max=100"`
	DailyWage types.Money `json:"dailyWage" binding:"money_pos"`
}

func (r CreateEmployeeRequest) ToInput() wage.CreateEmployeeInput {
	return wage.CreateEmployeeInput{Name: r.Name, Trade: r.Trade, DailyWage: r.DailyWage}
}

// MarkAttendanceRequest records one day. Status is 1 (present) or 0 (absent).
type MarkAttendanceRequest struct {
	EmployeeID id.ID `json:"employeeId" binding:"required"`
	SiteID     id.ID `json:"siteId" binding:"required"`
	Date       Date  `json:"date"`
	Status     *int  `json:"status" binding:"required,oneof=0 1"`
}

func (r MarkAttendanceRequest) ToInput() wage.MarkAttendanceInput {
	return wage.MarkAttendanceInput{
		EmployeeID: r.EmployeeID,
		SiteID:     r.SiteID,
		Date:       r.Date.Time,
		Status:     wage.AttendanceStatus(*r.Status),
	}
}

// AttendanceQuery filters GET /attendance. Dates are YYYY-MM-DD.
type AttendanceQuery struct {
	PageQuery
	EmployeeID string `form:"employeeId" binding:"omitempty,uuid"`
	SiteID     string `form:"siteId" binding:"omitempty,uuid"`
	From       string `form:"from"`
	To         string `form:"to"`
	IsPaid     *bool  `form:"isPaid"`
}

// CalculateSalaryRequest asks for the wage of one employee over a range.
type CalculateSalaryRequest struct {
	EmployeeID id.ID `json:"employeeId" binding:"required"`
	From       Date  `json:"from"`
	To         Date  `json:"to"`
}

// MarkPaidRequest pays a batch of attendances.
type MarkPaidRequest struct {
	AttendanceIDs []id.ID `json:"attendanceIds" binding:"required,min=1,max=1000"`
}
