package company_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/activity"
	"buildledger/internal/domain/company"
	"buildledger/internal/domain/siteledger"
)

func TestCompanyPostings(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	svc := f.Services.Company

	in, err := svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(10000), Type: company.TypeIncoming, Description: "loan"})
	require.NoError(t, err)
	assert.True(t, in.TotalAfter.Equal(types.NewMoney(10000)))

	out, err := svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(2500), Type: company.TypeExpenditure, SiteID: &site.ID})
	require.NoError(t, err)
	assert.True(t, out.TotalAfter.Equal(types.NewMoney(7500)))
	assert.Equal(t, int64(2), out.Seq)

	acc, err := svc.Get(f.Ctx)
	require.NoError(t, err)
	assert.True(t, acc.TotalAmount.Equal(types.NewMoney(7500)))

	bySite, err := svc.Entries(f.Ctx, company.EntryFilter{SiteID: &site.ID})
	require.NoError(t, err)
	assert.Len(t, bySite, 1)

	rec, err := svc.Reconcile(f.Ctx, f.Accountant, false)
	require.NoError(t, err)
	assert.True(t, rec.Drift.IsZero())
}

func TestCompanyIsNotDrivenBySitePostings(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)

	_, err := f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{SiteID: site.ID, Amount: types.NewMoney(40), Type: siteledger.TypePurchase})
	require.NoError(t, err)

	acc, err := f.Services.Company.Get(f.Ctx)
	require.NoError(t, err)
	assert.True(t, acc.TotalAmount.IsZero())
}

func TestCompanyValidation(t *testing.T) {
	f := apptest.New(t)
	svc := f.Services.Company

	_, err := svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(-1), Type: company.TypeIncoming})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(1), Type: "gift"})
	assert.True(t, apperror.IsValidation(err))

	siteID := id.New()
	_, err = svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(1), Type: company.TypeIncoming, SiteID: &siteID})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.PostTransaction(f.Ctx, f.Supervisor, company.PostInput{Amount: types.NewMoney(1), Type: company.TypeIncoming})
	assert.True(t, apperror.IsUnauthorized(err))

	entries, err := svc.Entries(f.Ctx, company.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := apptest.New(t)
	svc := f.Services.Company

	_, err := svc.PostTransaction(f.Ctx, f.Accountant, company.PostInput{Amount: types.NewMoney(500), Type: company.TypeIncoming})
	require.NoError(t, err)
	require.NoError(t, f.Storage.Company.SetTotal(f.Ctx, types.NewMoney(999)))

	rec, err := svc.Reconcile(f.Ctx, f.Accountant, false)
	require.NoError(t, err)
	assert.True(t, rec.Drift.Equal(types.NewMoney(499)))
	assert.False(t, rec.Repaired)

	rec, err = svc.Reconcile(f.Ctx, f.Accountant, true)
	require.NoError(t, err)
	assert.True(t, rec.Repaired)

	acc, err := svc.Get(f.Ctx)
	require.NoError(t, err)
	assert.True(t, acc.TotalAmount.Equal(types.NewMoney(500)))

	history, err := f.Services.Activity.History(f.Ctx, "company", acc.ID, 10)
	require.NoError(t, err)
	var actions []activity.Action
	for _, e := range history {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, activity.ActionReconcile)

	_, err = svc.Reconcile(f.Ctx, f.Storekeeper, true)
	assert.True(t, apperror.IsUnauthorized(err))
}

// lockRecorder remembers which account read each call used.
type lockRecorder struct {
	company.Repository
	reads []string
}

func (r *lockRecorder) Get(ctx context.Context) (*company.Account, error) {
	r.reads = append(r.reads, "get")
	return r.Repository.Get(ctx)
}

func (r *lockRecorder) GetForUpdate(ctx context.Context) (*company.Account, error) {
	r.reads = append(r.reads, "for_update")
	return r.Repository.GetForUpdate(ctx)
}

func TestReconcileLocksAccountBeforeSumming(t *testing.T) {
	f := apptest.New(t)
	repo := &lockRecorder{Repository: f.Storage.Company}
	svc := company.NewService(f.Storage.TxManager, repo, nil, nil)

	_, err := svc.Reconcile(f.Ctx, f.Accountant, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"for_update"}, repo.reads)
}
