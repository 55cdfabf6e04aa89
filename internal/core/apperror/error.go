// Package apperror provides structured error handling for the ledger core.
// Every business failure returned across a package boundary is an *AppError
// with a stable Code; the HTTP layer is the only place that renders it.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidState           = "INVALID_STATE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeLockNotObtained        = "LOCK_NOT_OBTAINED"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
	CodeRateLimited            = "RATE_LIMITED"
	CodeTimeout                = "TIMEOUT_ERROR"
	CodeInternal               = "INTERNAL_ERROR"
)

// Kind groups codes into the error families callers branch on.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindInsufficientStock Kind = "insufficient_stock"
	KindUnauthenticated   Kind = "unauthenticated"
	KindUnauthorized      Kind = "unauthorized"
	KindConflict          Kind = "conflict"
	KindRateLimited       Kind = "rate_limited"
	KindOperational       Kind = "operational"
)

type classification struct {
	status int
	kind   Kind
}

var classes = map[string]classification{
	CodeValidation:             {http.StatusBadRequest, KindValidation},
	CodeNotFound:               {http.StatusNotFound, KindNotFound},
	CodeInvalidState:           {http.StatusConflict, KindInvalidState},
	CodeInsufficientStock:      {http.StatusUnprocessableEntity, KindInsufficientStock},
	CodeUnauthenticated:        {http.StatusUnauthorized, KindUnauthenticated},
	CodeUnauthorized:           {http.StatusForbidden, KindUnauthorized},
	CodeConcurrentModification: {http.StatusConflict, KindConflict},
	CodeDuplicate:              {http.StatusConflict, KindConflict},
	CodeLockNotObtained:        {http.StatusConflict, KindConflict},
	CodeIdempotency:            {http.StatusConflict, KindConflict},
	CodeRateLimited:            {http.StatusTooManyRequests, KindRateLimited},
	CodeTimeout:                {http.StatusGatewayTimeout, KindOperational},
	CodeInternal:               {http.StatusInternalServerError, KindOperational},
}

// AppError is the standard error type.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	// Err is logged but never rendered.
	Err error `json:"-"`
}

func newError(code, message string, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		HTTPStatus: classes[code].status,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds one detail entry.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

// NewFieldValidation is a validation error about a single input field.
func NewFieldValidation(field, message string) *AppError {
	return newError(CodeValidation, message, map[string]any{"field": field})
}

func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, entity+" not found", map[string]any{"entity": entity, "id": id})
}

// NewInvalidState is returned when an operation is not legal in the
// entity's current workflow state (double decide, double pay, re-resolve).
func NewInvalidState(entity string, id any, current, operation string) *AppError {
	return newError(CodeInvalidState,
		fmt.Sprintf("cannot %s %s in state %q", operation, entity, current),
		map[string]any{"entity": entity, "id": id, "state": current, "operation": operation})
}

// NewInsufficientStock reports a decrement larger than the line holds.
// Quantities are passed in their decimal text form.
func NewInsufficientStock(stockID, requested, available string) *AppError {
	return newError(CodeInsufficientStock, "insufficient stock",
		map[string]any{"stock_id": stockID, "requested": requested, "available": available})
}

// NewConcurrentModification is returned when a conditional update matched no
// row because another request changed it first.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(CodeConcurrentModification, entity+" was modified by another request",
		map[string]any{"entity": entity, "id": id})
}

// NewInternal hides err from the client.
func NewInternal(err error) *AppError {
	e := newError(CodeInternal, "Internal server error", nil)
	e.Err = err
	return e
}

func NewTimeout(operation string, err error) *AppError {
	e := newError(CodeTimeout, operation+" timed out", nil)
	e.Err = err
	return e
}

func NewUnauthenticated(message string) *AppError {
	return newError(CodeUnauthenticated, message, nil)
}

// NewUnauthorized is returned when the actor's role does not allow the action.
func NewUnauthorized(action, role string) *AppError {
	return newError(CodeUnauthorized,
		fmt.Sprintf("role %q is not allowed to %s", role, action),
		map[string]any{"action": action, "role": role})
}

func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate,
		fmt.Sprintf("%s with this %s already exists", entity, field),
		map[string]any{"entity": entity, "field": field, "value": value})
}

// NewLockNotObtained is returned when another request holds the entity lock.
func NewLockNotObtained(key string) *AppError {
	return newError(CodeLockNotObtained, "resource is busy, retry later", map[string]any{"key": key})
}

// NewIdempotencyConflict is returned while the first request with key is
// still running.
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotency, "operation already in progress", map[string]any{"idempotency_key": key})
}

// NewIdempotencyMismatch is returned when key is reused for a different
// request.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotency, "idempotency key reused for a different request",
		map[string]any{"idempotency_key": key})
}

func NewRateLimited(limit int64) *AppError {
	return newError(CodeRateLimited, "too many requests", map[string]any{"limit": limit})
}

// AsAppError extracts the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Code returns the error code for any error; non-AppErrors are operational.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// KindOf classifies err. Anything that is not an AppError is operational.
func KindOf(err error) Kind {
	if c, ok := classes[Code(err)]; ok {
		return c.kind
	}
	return KindOperational
}

func IsNotFound(err error) bool          { return Code(err) == CodeNotFound }
func IsInvalidState(err error) bool      { return Code(err) == CodeInvalidState }
func IsInsufficientStock(err error) bool { return Code(err) == CodeInsufficientStock }
func IsValidation(err error) bool        { return Code(err) == CodeValidation }
func IsUnauthorized(err error) bool      { return Code(err) == CodeUnauthorized }
