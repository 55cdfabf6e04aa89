// Package handlers provides HTTP request handlers.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON decodes and validates the body. Rule violations are reported per
// field as {"fields": {"quantity": "qty_pos", ...}}.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, bindError("invalid request body", err))
		return false
	}
	return true
}

// BindQuery decodes and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, bindError("invalid query parameters", err))
		return false
	}
	return true
}

func bindError(message string, err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewValidation(message).WithDetail("error", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apperror.NewValidation(message).WithDetail("fields", fields)
}

// Error registers err and aborts. middleware.ErrorHandler writes the body.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Actor returns the authenticated actor or aborts with UNAUTHENTICATED.
func (h *BaseHandler) Actor(c *gin.Context) (actor.Actor, bool) {
	a, ok := middleware.Actor(c)
	if !ok {
		h.Error(c, apperror.NewUnauthenticated("authentication required"))
		return actor.Actor{}, false
	}
	return a, true
}

// ParamID parses a path parameter as an id.
func (h *BaseHandler) ParamID(c *gin.Context, name string) (id.ID, bool) {
	v, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewFieldValidation(name, "invalid id"))
		return id.Nil(), false
	}
	return v, true
}

// QueryID parses an optional query parameter as an id. Binding has already
// checked the format.
func (h *BaseHandler) QueryID(s string) *id.ID {
	v, err := id.ParseOptional(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return v
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// Created sends 201 response with the created resource.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

func page(q dto.PageQuery) dto.PageQuery {
	if q.Limit == 0 {
		q.Limit = 100
	}
	return q
}
