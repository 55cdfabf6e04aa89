// Package dto provides the request and response shapes of the HTTP API.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"buildledger/internal/core/id"
)

// PageQuery is the limit/offset pair accepted by list endpoints.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewList builds a ListResponse and never returns a null items array.
func NewList[T any](items []T, page PageQuery) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: page.Limit, Offset: page.Offset}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

const dateLayout = "2006-01-02"

// Date is a calendar day. It accepts "2006-01-02" or RFC 3339.
type Date struct {
	time.Time
}

// ParseDate parses a query or body date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// TimePtr returns nil for a nil or zero date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
