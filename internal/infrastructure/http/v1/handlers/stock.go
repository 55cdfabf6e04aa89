package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/stock"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// StockHandler serves stock lines and transfers.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /stock and /stock-transfers.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)

	s := rg.Group("/stock")
	s.POST("/receipts", h.Receive)
	s.GET("", view, h.List)
	s.GET("/:id", view, h.Get)
	s.POST("/:id/consume", h.Consume)
	s.GET("/:id/conservation", view, h.Conservation)

	t := rg.Group("/stock-transfers")
	t.POST("", h.RequestTransfer)
	t.GET("", view, h.ListTransfers)
	t.GET("/:id", view, h.GetTransfer)
	t.PATCH("/:id/decision", h.Decide)
}

// Receive handles POST /stock/receipts.
func (h *StockHandler) Receive(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	line, err := h.service.Receive(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, line)
}

// Consume handles POST /stock/:id/consume.
func (h *StockHandler) Consume(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	stockID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ConsumeStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	line, err := h.service.Consume(c.Request.Context(), a, stockID, req.Quantity, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, line)
}

// List handles GET /stock.
func (h *StockHandler) List(c *gin.Context) {
	var q dto.StockListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	lines, err := h.service.List(c.Request.Context(), stock.ListFilter{
		SiteID:   h.QueryID(q.SiteID),
		PoolOnly: q.Pool,
		Category: q.Category,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(lines, q.PageQuery))
}

// Get handles GET /stock/:id with the latest movements.
func (h *StockHandler) Get(c *gin.Context) {
	stockID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	line, err := h.service.Get(ctx, stockID)
	if err != nil {
		h.Error(c, err)
		return
	}
	movements, err := h.service.Movements(ctx, stockID, 50)
	if err != nil {
		h.Error(c, err)
		return
	}
	if movements == nil {
		movements = []*stock.Movement{}
	}
	h.OK(c, dto.StockDetail{Stock: line, Movements: movements})
}

// Conservation handles GET /stock/:id/conservation.
func (h *StockHandler) Conservation(c *gin.Context) {
	stockID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	report, err := h.service.CheckConservation(c.Request.Context(), stockID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RequestTransfer handles POST /stock-transfers.
func (h *StockHandler) RequestTransfer(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.RequestTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := h.service.RequestTransfer(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t)
}

// Decide handles PATCH /stock-transfers/:id/decision.
func (h *StockHandler) Decide(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	transferID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.DecideTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := h.service.Decide(c.Request.Context(), a, transferID, stock.DecideInput{Decision: req.Decision, Note: req.Note})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// ListTransfers handles GET /stock-transfers.
func (h *StockHandler) ListTransfers(c *gin.Context) {
	var q dto.TransferListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	filter := stock.TransferFilter{SiteID: h.QueryID(q.SiteID), Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := stock.TransferStatus(q.Status)
		filter.Status = &st
	}
	transfers, err := h.service.ListTransfers(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(transfers, q.PageQuery))
}

// GetTransfer handles GET /stock-transfers/:id.
func (h *StockHandler) GetTransfer(c *gin.Context) {
	transferID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTransfer(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}
