package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/domain/wage"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// WageHandler serves employees, attendance and payroll.
type WageHandler struct {
	*BaseHandler
	service *wage.Service
}

// NewWageHandler creates a wage handler.
func NewWageHandler(base *BaseHandler, service *wage.Service) *WageHandler {
	return &WageHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /employees and /attendance.
func (h *WageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)

	e := rg.Group("/employees")
	e.POST("", h.CreateEmployee)
	e.GET("", view, h.ListEmployees)
	e.GET("/:id", view, h.GetEmployee)
	e.POST("/calculate-salary", h.CalculateSalary)
	e.POST("/mark-attendances-paid", h.MarkPaid)

	at := rg.Group("/attendance")
	at.POST("/mark", h.MarkAttendance)
	at.GET("", view, h.ListAttendance)
}

// CreateEmployee handles POST /employees.
func (h *WageHandler) CreateEmployee(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateEmployeeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	emp, err := h.service.CreateEmployee(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, emp)
}

// ListEmployees handles GET /employees.
func (h *WageHandler) ListEmployees(c *gin.Context) {
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q = page(q)
	list, err := h.service.ListEmployees(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, q))
}

// GetEmployee handles GET /employees/:id.
func (h *WageHandler) GetEmployee(c *gin.Context) {
	employeeID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	emp, err := h.service.GetEmployee(c.Request.Context(), employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, emp)
}

// MarkAttendance handles POST /attendance/mark.
func (h *WageHandler) MarkAttendance(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	att, err := h.service.MarkAttendance(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, att)
}

// ListAttendance handles GET /attendance.
func (h *WageHandler) ListAttendance(c *gin.Context) {
	var q dto.AttendanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	filter := wage.AttendanceFilter{
		EmployeeID: h.QueryID(q.EmployeeID),
		SiteID:     h.QueryID(q.SiteID),
		IsPaid:     q.IsPaid,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.From != "" {
		t, err := dto.ParseDate(q.From)
		if err != nil {
			h.Error(c, apperror.NewFieldValidation("from", err.Error()))
			return
		}
		filter.From = &t
	}
	if q.To != "" {
		t, err := dto.ParseDate(q.To)
		if err != nil {
			h.Error(c, apperror.NewFieldValidation("to", err.Error()))
			return
		}
		filter.To = &t
	}
	list, err := h.service.ListAttendance(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, q.PageQuery))
}

// CalculateSalary handles POST /employees/calculate-salary.
func (h *WageHandler) CalculateSalary(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CalculateSalaryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	salary, err := h.service.CalculateSalary(c.Request.Context(), a, req.EmployeeID, wage.DateRange{From: req.From.Time, To: req.To.Time})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, salary)
}

// MarkPaid handles POST /employees/mark-attendances-paid.
func (h *WageHandler) MarkPaid(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.MarkPaidRequest
	if !h.BindJSON(c, &req) {
		return
	}
	batch, err := h.service.MarkAttendancesPaid(c.Request.Context(), a, req.AttendanceIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, batch)
}
