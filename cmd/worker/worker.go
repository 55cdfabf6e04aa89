package main

import (
	"context"
	"time"

	"buildledger/internal/app"
	"buildledger/internal/core/actor"
	appctx "buildledger/internal/core/context"
	"buildledger/internal/core/idempotency"
	"buildledger/internal/infrastructure/storage/postgres"
	"buildledger/pkg/logger"
)

const outboxRetention = 7 * 24 * time.Hour

// Worker runs the periodic jobs: outbox relay, ledger reconciliation and
// cleanup of expired idempotency keys and published outbox rows.
type Worker struct {
	services          *app.Services
	idempotency       idempotency.Store
	relay             *postgres.OutboxRelay
	pool              *postgres.Pool
	pollInterval      time.Duration
	reconcileInterval time.Duration
	log               *logger.Logger
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if w.pollInterval <= 0 {
		w.pollInterval = 500 * time.Millisecond
	}
	if w.reconcileInterval <= 0 {
		w.reconcileInterval = time.Hour
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	reconcileTicker := time.NewTicker(w.reconcileInterval)
	defer reconcileTicker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	w.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-reconcileTicker.C:
			w.reconcile(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// job scopes one run: its log lines and the service logs beneath it share a
// trace id and the job name.
func (w *Worker) job(ctx context.Context, name string) (context.Context, *logger.Logger) {
	ctx = appctx.WithCorrelation(ctx, appctx.ForJob(name))
	ctx = logger.WithLogger(ctx, w.log)
	return ctx, w.log.WithContext(ctx)
}

func (w *Worker) processOutbox(ctx context.Context) {
	if w.relay == nil {
		return
	}
	ctx, log := w.job(ctx, "outbox")
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		log.Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		log.Debugw("processed outbox batch", "count", n)
	}
}

// reconcile compares cached totals with their logs and reports drift
// without repairing it. It returns how many ledgers drifted.
func (w *Worker) reconcile(ctx context.Context) int {
	system := actor.System()
	ctx, log := w.job(actor.WithActor(ctx, system), "reconcile")
	drifted := 0

	sites, err := w.services.Sites.ReconcileAll(ctx, system, false)
	if err != nil {
		log.Errorw("site reconciliation failed", "error", err)
	}
	for _, rec := range sites {
		if !rec.InSync() {
			drifted++
		}
	}

	assignments, err := w.services.Contractors.ReconcileAll(ctx, system, false)
	if err != nil {
		log.Errorw("contractor reconciliation failed", "error", err)
	}
	for _, rec := range assignments {
		if !rec.Drift.IsZero() {
			drifted++
		}
	}

	companyRec, err := w.services.Company.Reconcile(ctx, system, false)
	if err != nil {
		log.Errorw("company reconciliation failed", "error", err)
	} else if !companyRec.Drift.IsZero() {
		drifted++
	}

	if drifted > 0 {
		log.Warnw("reconciliation found drift", "ledgers", drifted)
	} else {
		log.Debugw("reconciliation clean", "sites", len(sites), "assignments", len(assignments))
	}
	return drifted
}

func (w *Worker) cleanup(ctx context.Context) {
	ctx, log := w.job(ctx, "cleanup")
	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		log.Infow("cleaned up idempotency keys", "count", n)
	}

	if w.pool != nil {
		w.pool.LogStats(ctx)
	}
	if w.relay == nil {
		return
	}
	if n, err := w.relay.PurgePublished(ctx, outboxRetention); err != nil {
		log.Errorw("outbox purge failed", "error", err)
	} else if n > 0 {
		log.Infow("purged published outbox messages", "count", n)
	}
}
