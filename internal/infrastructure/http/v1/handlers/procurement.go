package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/procurement"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// ProcurementHandler serves purchases and machinery rentals.
type ProcurementHandler struct {
	*BaseHandler
	service *procurement.Service
}

// NewProcurementHandler creates a procurement handler.
func NewProcurementHandler(base *BaseHandler, service *procurement.Service) *ProcurementHandler {
	return &ProcurementHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /purchases and /machinery-rentals.
func (h *ProcurementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)

	p := rg.Group("/purchases")
	p.POST("", h.CreatePurchase)
	p.GET("", view, h.ListPurchases)
	p.GET("/:id", view, h.GetPurchase)
	p.PATCH("/:id/verify", h.VerifyPurchase)

	r := rg.Group("/machinery-rentals")
	r.POST("", h.CreateRental)
	r.GET("", view, h.ListRentals)
	r.GET("/:id", view, h.GetRental)
	r.PATCH("/:id/verify", h.VerifyRental)
}

func (h *ProcurementHandler) listFilter(c *gin.Context) (procurement.ListFilter, dto.PageQuery, bool) {
	var q dto.ProcurementListQuery
	if !h.BindQuery(c, &q) {
		return procurement.ListFilter{}, dto.PageQuery{}, false
	}
	q.PageQuery = page(q.PageQuery)
	filter := procurement.ListFilter{SiteID: h.QueryID(q.SiteID), Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := procurement.Status(q.Status)
		filter.Status = &st
	}
	return filter, q.PageQuery, true
}

// CreatePurchase handles POST /purchases.
func (h *ProcurementHandler) CreatePurchase(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.service.CreatePurchase(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// VerifyPurchase handles PATCH /purchases/:id/verify.
func (h *ProcurementHandler) VerifyPurchase(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	purchaseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.VerifyPurchase(c.Request.Context(), a, purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// GetPurchase handles GET /purchases/:id.
func (h *ProcurementHandler) GetPurchase(c *gin.Context) {
	purchaseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// ListPurchases handles GET /purchases.
func (h *ProcurementHandler) ListPurchases(c *gin.Context) {
	filter, pq, ok := h.listFilter(c)
	if !ok {
		return
	}
	list, err := h.service.ListPurchases(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, pq))
}

// CreateRental handles POST /machinery-rentals.
func (h *ProcurementHandler) CreateRental(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateRentalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.service.CreateRental(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r)
}

// VerifyRental handles PATCH /machinery-rentals/:id/verify.
func (h *ProcurementHandler) VerifyRental(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	rentalID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.VerifyRental(c.Request.Context(), a, rentalID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// GetRental handles GET /machinery-rentals/:id.
func (h *ProcurementHandler) GetRental(c *gin.Context) {
	rentalID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.GetRental(c.Request.Context(), rentalID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// ListRentals handles GET /machinery-rentals.
func (h *ProcurementHandler) ListRentals(c *gin.Context) {
	filter, pq, ok := h.listFilter(c)
	if !ok {
		return
	}
	list, err := h.service.ListRentals(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, pq))
}
