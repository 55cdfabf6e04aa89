package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/infrastructure/export"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// SiteHandler serves the site ledger.
type SiteHandler struct {
	*BaseHandler
	service *siteledger.Service
}

// NewSiteHandler creates a site handler.
func NewSiteHandler(base *BaseHandler, service *siteledger.Service) *SiteHandler {
	return &SiteHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts /sites.
func (h *SiteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireAction(actor.ActionViewLedgers)
	g := rg.Group("/sites")
	g.POST("", h.Create)
	g.GET("", view, h.List)
	g.GET("/:id", view, h.Get)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.GET("/:id/summary", view, h.Summary)
	g.GET("/:id/entries", view, h.Entries)
	g.GET("/:id/entries/export", view, h.Export)
	g.POST("/:id/reconcile", h.Reconcile)
}

// Create handles POST /sites.
func (h *SiteHandler) Create(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateSiteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	site, err := h.service.Create(c.Request.Context(), a, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, site)
}

// List handles GET /sites.
func (h *SiteHandler) List(c *gin.Context) {
	var q dto.SiteListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	filter := siteledger.ListFilter{
		ManagerID: h.QueryID(q.ManagerID),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Status != "" {
		st := siteledger.Status(q.Status)
		filter.Status = &st
	}
	sites, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(sites, q.PageQuery))
}

// Get handles GET /sites/:id.
func (h *SiteHandler) Get(c *gin.Context) {
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	site, err := h.service.Get(c.Request.Context(), siteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, site)
}

// ChangeStatus handles PATCH /sites/:id/status.
func (h *SiteHandler) ChangeStatus(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeSiteStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	site, err := h.service.ChangeStatus(c.Request.Context(), a, siteID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, site)
}

// Summary handles GET /sites/:id/summary.
func (h *SiteHandler) Summary(c *gin.Context) {
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), siteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

func (h *SiteHandler) entryFilter(c *gin.Context) (siteledger.EntryFilter, bool) {
	var q dto.EntryListQuery
	if !h.BindQuery(c, &q) {
		return siteledger.EntryFilter{}, false
	}
	filter := siteledger.EntryFilter{FromSeq: q.FromSeq, Limit: q.Limit}
	if q.Type != "" {
		t := siteledger.EntryType(q.Type)
		filter.Type = &t
	}
	return filter, true
}

// Entries handles GET /sites/:id/entries.
func (h *SiteHandler) Entries(c *gin.Context) {
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.entryFilter(c)
	if !ok {
		return
	}
	entries, err := h.service.Entries(c.Request.Context(), siteID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(entries, dto.PageQuery{Limit: filter.Limit}))
}

// Export handles GET /sites/:id/entries/export as an XLSX download.
func (h *SiteHandler) Export(c *gin.Context) {
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.entryFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	site, err := h.service.Get(ctx, siteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	entries, err := h.service.Entries(ctx, siteID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.SiteEntries(&buf, site, entries); err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(site)+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// Reconcile handles POST /sites/:id/reconcile.
func (h *SiteHandler) Reconcile(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	siteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ReconcileRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.service.Reconcile(c.Request.Context(), a, siteID, req.Repair)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}
