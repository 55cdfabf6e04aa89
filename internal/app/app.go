// Package app wires storage and collaborators into the domain services.
// cmd/server, cmd/worker and the service tests all build through it.
package app

import (
	"fmt"
	"time"

	"buildledger/internal/core/idempotency"
	"buildledger/internal/core/lock"
	"buildledger/internal/core/numerator"
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

// Storage is the set of repositories behind one transaction manager.
type Storage struct {
	TxManager     tx.Manager
	Sites         siteledger.Repository
	Company       company.Repository
	Contractors   contractor.Repository
	Stock         stock.Repository
	Wages         wage.Repository
	Procurement   procurement.Repository
	Notifications notification.Repository
	Activity      activity.Repository
	Idempotency   idempotency.Store
	Numerator     numerator.Generator
}

// Options configures collaborators that do not come from storage.
type Options struct {
	Locker            lock.Locker
	LockTTL           time.Duration
	Publisher         notification.Publisher
	NotifyTimeout     time.Duration
	BudgetRule        string
	ActivityThreshold int
}

// Services are the domain entry points.
type Services struct {
	Sites         *siteledger.Service
	Company       *company.Service
	Contractors   *contractor.Service
	Stock         *stock.Service
	Wages         *wage.Service
	Procurement   *procurement.Service
	Notifications *notification.Dispatcher
	Activity      *activity.Recorder
}

// NewServices builds every service over st.
func NewServices(st *Storage, opts Options) (*Services, error) {
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.BudgetRule == "" {
		opts.BudgetRule = siteledger.DefaultBudgetRule
	}

	rule, err := siteledger.NewBudgetRule(opts.BudgetRule)
	if err != nil {
		return nil, fmt.Errorf("budget rule: %w", err)
	}
	recorder, err := activity.NewRecorder(st.Activity)
	if err != nil {
		return nil, fmt.Errorf("activity recorder: %w", err)
	}
	if opts.ActivityThreshold > 0 {
		recorder = recorder.WithThreshold(opts.ActivityThreshold)
	}

	dispatcher := notification.NewDispatcher(st.TxManager, st.Notifications, opts.Publisher, opts.NotifyTimeout)
	sites := siteledger.NewService(st.TxManager, st.Sites, dispatcher, recorder, rule)
	stockSvc := stock.NewService(stock.Deps{
		TxManager: st.TxManager,
		Repo:      st.Stock,
		Sites:     sites,
		Numerator: st.Numerator,
		Notifier:  dispatcher,
		Recorder:  recorder,
		Locker:    opts.Locker,
		LockTTL:   opts.LockTTL,
	})

	return &Services{
		Sites:         sites,
		Company:       company.NewService(st.TxManager, st.Company, sites, recorder),
		Contractors:   contractor.NewService(st.TxManager, st.Contractors, sites, opts.Locker, opts.LockTTL, recorder),
		Stock:         stockSvc,
		Wages:         wage.NewService(st.TxManager, st.Wages, sites, recorder),
		Procurement:   procurement.NewService(st.TxManager, st.Procurement, sites, stockSvc, st.Numerator, dispatcher, recorder),
		Notifications: dispatcher,
		Activity:      recorder,
	}, nil
}
