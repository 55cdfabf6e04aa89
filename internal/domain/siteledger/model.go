// Package siteledger owns a site's budget, its cached expense total and the
// append-only log of postings that explains it.
package siteledger

import (
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// Status is the lifecycle state of a site.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPlanning: {StatusActive},
	StatusActive:   {StatusOnHold, StatusCompleted},
	StatusOnHold:   {StatusActive, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the site FSM allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// EntryKind is the direction of a posting. Only expense is produced today;
// income is part of the log format.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

// EntryType names the source of a posting.
type EntryType string

const (
	TypePurchase      EntryType = "purchase"
	TypeRental        EntryType = "rental"
	TypeAttendance    EntryType = "attendance"
	TypeStockTransfer EntryType = "stock_transfer"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypePurchase, TypeRental, TypeAttendance, TypeStockTransfer:
		return true
	}
	return false
}

// Phase is a planning milestone of a site.
type Phase struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Site is a construction site.
type Site struct {
	ID        id.ID       `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Location  string      `db:"location" json:"location"`
	Budget    types.Money `db:"budget" json:"budget"`
	Expenses  types.Money `db:"expenses" json:"expenses"`
	Status    Status      `db:"status" json:"status"`
	ManagerID *id.ID      `db:"manager_id" json:"managerId,omitempty"`
	Phases    []Phase     `db:"phases" json:"phases"`
	Version   int         `db:"version" json:"version"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Remaining is budget minus expenses; negative when over budget.
func (s *Site) Remaining() types.Money {
	return s.Budget.Sub(s.Expenses)
}

// Entry is one posting in a site's log.
type Entry struct {
	ID            id.ID       `db:"id" json:"id"`
	SiteID        id.ID       `db:"site_id" json:"siteId"`
	Seq           int64       `db:"seq" json:"seq"`
	Kind          EntryKind   `db:"kind" json:"kind"`
	Type          EntryType   `db:"type" json:"type"`
	Amount        types.Money `db:"amount" json:"amount"`
	RelatedID     *id.ID      `db:"related_id" json:"relatedId,omitempty"`
	ExpensesAfter types.Money `db:"expenses_after" json:"expensesAfter"`
	PostedBy      id.ID       `db:"posted_by" json:"postedBy"`
	PostedAt      time.Time   `db:"posted_at" json:"postedAt"`
}

// SignedAmount is the effect of the entry on Site.Expenses.
func (e *Entry) SignedAmount() types.Money {
	if e.Kind == KindIncome {
		return e.Amount.Neg()
	}
	return e.Amount
}

// CreateSiteInput describes a new site.
type CreateSiteInput struct {
	Name      string
	Location  string
	Budget    types.Money
	ManagerID *id.ID
	Phases    []Phase
}

// PostExpenseInput describes one posting.
type PostExpenseInput struct {
	SiteID    id.ID
	Amount    types.Money
	Type      EntryType
	RelatedID *id.ID
}

// Summary is the budget view of a site.
type Summary struct {
	SiteID     id.ID                     `json:"siteId"`
	Budget     types.Money               `json:"budget"`
	Expenses   types.Money               `json:"expenses"`
	Remaining  types.Money               `json:"remaining"`
	OverBudget bool                      `json:"overBudget"`
	ByType     map[EntryType]types.Money `json:"byType"`
}

// Reconciliation compares the cached total with the log.
type Reconciliation struct {
	SiteID   id.ID       `json:"siteId"`
	Cached   types.Money `json:"cached"`
	Computed types.Money `json:"computed"`
	Drift    types.Money `json:"drift"`
	Repaired bool        `json:"repaired"`
}

// InSync reports whether the cached total matches the log.
func (r Reconciliation) InSync() bool {
	return r.Drift.IsZero()
}

// ListFilter narrows site listings.
type ListFilter struct {
	Status    *Status
	ManagerID *id.ID
	Limit     int
	Offset    int
}

// EntryFilter narrows entry listings. Entries are always in posting order.
type EntryFilter struct {
	Type    *EntryType
	FromSeq int64
	Limit   int
}
