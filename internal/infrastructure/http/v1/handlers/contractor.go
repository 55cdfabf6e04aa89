package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/contractor"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// ContractorHandler serves contractor accounts.
type ContractorHandler struct {
	*BaseHandler
	service *contractor.Service
}

// NewContractorHandler creates a contractor handler.
func NewContractorHandler(base *BaseHandler, service *contractor.Service) *ContractorHandler {
	return &ContractorHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /contractors.
func (h *ContractorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)
	g := rg.Group("/contractors")
	g.POST("", h.Create)
	g.GET("", view, h.List)
	g.POST("/assign-site", h.AssignSite)
	g.POST("/transactions", h.PostTransaction)
	g.GET("/:id", view, h.Get)
	g.GET("/:id/sites/:siteId/balance", view, h.Balance)
	g.GET("/:id/sites/:siteId/transactions", view, h.Transactions)
	g.POST("/:id/sites/:siteId/reconcile", h.Reconcile)
}

// Create handles POST /contractors.
func (h *ContractorHandler) Create(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateContractorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.service.Create(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// List handles GET /contractors.
func (h *ContractorHandler) List(c *gin.Context) {
	var q dto.ContractorListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	list, err := h.service.List(c.Request.Context(), contractor.ListFilter{
		SiteID: h.QueryID(q.SiteID),
		Search: q.Search,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, q.PageQuery))
}

// Get handles GET /contractors/:id.
func (h *ContractorHandler) Get(c *gin.Context) {
	contractorID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	found, err := h.service.Get(c.Request.Context(), contractorID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, found)
}

// AssignSite handles POST /contractors/assign-site. A repeated assignment
// answers 200 with created=false.
func (h *ContractorHandler) AssignSite(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.AssignSiteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	asg, created, err := h.service.AssignSite(c.Request.Context(), a, req.ContractorID, req.SiteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	resp := dto.AssignSiteResponse{Assignment: asg, Created: created}
	if created {
		h.Created(c, resp)
		return
	}
	h.OK(c, resp)
}

// PostTransaction handles POST /contractors/transactions.
func (h *ContractorHandler) PostTransaction(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ContractorTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	txn, err := h.service.PostTransaction(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, txn)
}

// Balance handles GET /contractors/:id/sites/:siteId/balance.
func (h *ContractorHandler) Balance(c *gin.Context) {
	contractorID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	siteID, ok := h.ParamID(c, "siteId")
	if !ok {
		return
	}
	balance, err := h.service.Balance(c.Request.Context(), contractorID, siteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BalanceResponse{ContractorID: contractorID, SiteID: siteID, Balance: balance})
}

// Transactions handles GET /contractors/:id/sites/:siteId/transactions.
func (h *ContractorHandler) Transactions(c *gin.Context) {
	contractorID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	siteID, ok := h.ParamID(c, "siteId")
	if !ok {
		return
	}
	txns, err := h.service.Transactions(c.Request.Context(), contractorID, siteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if txns == nil {
		txns = []*contractor.Transaction{}
	}
	h.OK(c, txns)
}

// Reconcile handles POST /contractors/:id/sites/:siteId/reconcile.
func (h *ContractorHandler) Reconcile(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	contractorID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	siteID, ok := h.ParamID(c, "siteId")
	if !ok {
		return
	}
	var req dto.ReconcileRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.service.Reconcile(c.Request.Context(), a, contractorID, siteID, req.Repair)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}
