package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/types"
	"buildledger/pkg/logger"
)

func TestReconcileReportsDriftWithoutRepair(t *testing.T) {
	fx := apptest.New(t)
	site := fx.Site(t, "Harbour", 1000)

	w := &Worker{
		services:    fx.Services,
		idempotency: fx.Storage.Idempotency,
		log:         logger.NewNop(),
	}
	assert.Equal(t, 0, w.reconcile(fx.Ctx))

	require.NoError(t, fx.Storage.Sites.SetExpenses(fx.Ctx, site.ID, types.NewMoney(42)))
	assert.Equal(t, 1, w.reconcile(fx.Ctx))
	assert.True(t, fx.Expenses(t, site.ID).Equal(types.NewMoney(42)))
}

func TestCleanupWithoutRelay(t *testing.T) {
	fx := apptest.New(t)
	w := &Worker{services: fx.Services, idempotency: fx.Storage.Idempotency, log: logger.NewNop()}
	w.cleanup(fx.Ctx)
}
