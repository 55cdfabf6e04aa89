package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/company"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// CompanyHandler serves the company ledger.
type CompanyHandler struct {
	*BaseHandler
	service *company.Service
}

// NewCompanyHandler creates a company handler.
func NewCompanyHandler(base *BaseHandler, service *company.Service) *CompanyHandler {
	return &CompanyHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /company.
func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)
	g := rg.Group("/company")
	g.GET("", view, h.Get)
	g.POST("/transactions", h.PostTransaction)
	g.GET("/entries", view, h.Entries)
	g.POST("/reconcile", h.Reconcile)
}

// Get handles GET /company.
func (h *CompanyHandler) Get(c *gin.Context) {
	acc, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, acc)
}

// PostTransaction handles POST /company/transactions.
func (h *CompanyHandler) PostTransaction(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CompanyTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.PostTransaction(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entry)
}

// Entries handles GET /company/entries.
func (h *CompanyHandler) Entries(c *gin.Context) {
	var q dto.CompanyEntryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	entries, err := h.service.Entries(c.Request.Context(), company.EntryFilter{
		SiteID: h.QueryID(q.SiteID),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(entries, q.PageQuery))
}

// Reconcile handles POST /company/reconcile.
func (h *CompanyHandler) Reconcile(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ReconcileRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.service.Reconcile(c.Request.Context(), a, req.Repair)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}
