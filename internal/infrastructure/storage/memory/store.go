// Package memory is an in-process implementation of every repository and of
// tx.Manager. Units of work are serialized by one mutex; every mutation made
// inside a unit registers an undo step, and a failed unit runs its steps in
// reverse before the error is returned.
package memory

import (
	"context"
	"sync"

	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/company"
	"buildledger/internal/domain/contractor"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/procurement"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/domain/stock"
	"buildledger/internal/domain/wage"
)

var _ tx.SnapshotManager = (*Store)(nil)

// Store holds all state. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	sites       map[id.ID]*siteledger.Site
	siteEntries map[id.ID][]*siteledger.Entry

	account        *company.Account
	companyEntries []*company.Entry

	contractors  map[id.ID]*contractor.Contractor
	assignments  map[assignmentKey]*contractor.Assignment
	contractorTx map[assignmentKey][]*contractor.Transaction

	stock     map[id.ID]*stock.Stock
	movements []*stock.Movement
	transfers map[id.ID]*stock.Transfer

	employees   map[id.ID]*wage.Employee
	attendances map[id.ID]*wage.Attendance

	purchases map[id.ID]*procurement.Purchase
	rentals   map[id.ID]*procurement.Rental

	notifications map[id.ID]*notification.Notification
	activity      []*activity.Entry
}

type assignmentKey struct {
	contractorID id.ID
	siteID       id.ID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sites:         make(map[id.ID]*siteledger.Site),
		siteEntries:   make(map[id.ID][]*siteledger.Entry),
		contractors:   make(map[id.ID]*contractor.Contractor),
		assignments:   make(map[assignmentKey]*contractor.Assignment),
		contractorTx:  make(map[assignmentKey][]*contractor.Transaction),
		stock:         make(map[id.ID]*stock.Stock),
		transfers:     make(map[id.ID]*stock.Transfer),
		employees:     make(map[id.ID]*wage.Employee),
		attendances:   make(map[id.ID]*wage.Attendance),
		purchases:     make(map[id.ID]*procurement.Purchase),
		rentals:       make(map[id.ID]*procurement.Rental),
		notifications: make(map[id.ID]*notification.Notification),
	}
}

// unit is an open unit of work and its undo log.
type unit struct {
	store *Store
	undo  []func()
}

func (u *unit) onRollback(fn func()) {
	u.undo = append(u.undo, fn)
}

func (u *unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

type unitKey struct{}

func (s *Store) unitFrom(ctx context.Context) *unit {
	if u, ok := ctx.Value(unitKey{}).(*unit); ok && u != nil && u.store == s {
		return u
	}
	return nil
}

// RunInTransaction runs fn as one unit. Nested calls join the outer unit.
// After-commit hooks run once the store lock is released.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.unitFrom(ctx) != nil {
		return fn(ctx)
	}

	u := &unit{store: s}
	unitCtx, hooks := tx.WithHooks(context.WithValue(ctx, unitKey{}, u))

	s.mu.Lock()
	func() {
		defer func() {
			if r := recover(); r != nil {
				u.rollback()
				s.mu.Unlock()
				panic(r)
			}
		}()
		if err = fn(unitCtx); err != nil {
			u.rollback()
		}
	}()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

// ReadOnly runs fn as a unit; the store does not enforce read-only access.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// write runs fn with the store locked. Outside a unit the call is its own
// unit and is undone if fn fails.
func (s *Store) write(ctx context.Context, fn func(u *unit) error) error {
	if u := s.unitFrom(ctx); u != nil {
		return fn(u)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &unit{store: s}
	if err := fn(u); err != nil {
		u.rollback()
		return err
	}
	return nil
}

// read runs fn with the store locked unless ctx already holds a unit.
func (s *Store) read(ctx context.Context, fn func() error) error {
	if s.unitFrom(ctx) != nil {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// put stores v under k and registers the inverse.
func put[K comparable, V any](u *unit, m map[K]V, k K, v V) {
	prev, existed := m[k]
	u.onRollback(func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

// appendKeyed appends v to m[k] and registers the truncation.
func appendKeyed[K comparable, V any](u *unit, m map[K][]V, k K, v V) {
	prev, existed := m[k]
	n := len(prev)
	u.onRollback(func() {
		if !existed {
			delete(m, k)
			return
		}
		m[k] = m[k][:n]
	})
	m[k] = append(prev, v)
}

// appendSlice appends v to *list and registers the truncation.
func appendSlice[V any](u *unit, list *[]V, v V) {
	n := len(*list)
	u.onRollback(func() { *list = (*list)[:n] })
	*list = append(*list, v)
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
