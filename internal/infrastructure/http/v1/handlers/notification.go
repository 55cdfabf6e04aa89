package handlers

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/domain/notification"
	"buildledger/internal/infrastructure/http/v1/dto"
)

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	*BaseHandler
	dispatcher *notification.Dispatcher
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(base *BaseHandler, dispatcher *notification.Dispatcher) *NotificationHandler {
	return &NotificationHandler{BaseHandler: base, dispatcher: dispatcher}
}

// RegisterRoutes mounts /notifications.
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.GET("", h.List)
	g.PUT("/:id/status", h.Resolve)
}

// List handles GET /notifications for the authenticated user.
func (h *NotificationHandler) List(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	var q dto.NotificationListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.PageQuery = page(q.PageQuery)
	filter := notification.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := notification.Status(q.Status)
		filter.Status = &st
	}
	list, err := h.dispatcher.ListForUser(c.Request.Context(), a, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewList(list, q.PageQuery))
}

// Resolve handles PUT /notifications/:id/status.
func (h *NotificationHandler) Resolve(c *gin.Context) {
	a, ok := h.Actor(c)
	if !ok {
		return
	}
	notificationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveNotificationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	n, err := h.dispatcher.Resolve(c.Request.Context(), a, notificationID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, n)
}
