package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/domain/activity"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// ActivityHandler serves entity history.
type ActivityHandler struct {
	*BaseHandler
	recorder *activity.Recorder
}

// NewActivityHandler creates an activity handler.
func NewActivityHandler(base *BaseHandler, recorder *activity.Recorder) *ActivityHandler {
	return &ActivityHandler{BaseHandler: base, recorder: recorder}
}

// RegisterRoutes mounts /activity.
func (h *ActivityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activity/:entityType/:entityId", middleware.RequireAction(actor.ActionViewLedgers), h.History)
}

// History handles GET /activity/:entityType/:entityId.
func (h *ActivityHandler) History(c *gin.Context) {
	entityID, ok := h.ParamID(c, "entityId")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q = page(q)
	entries, err := h.recorder.History(c.Request.Context(), c.Param("entityType"), entityID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(entries, q))
}
