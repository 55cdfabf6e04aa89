package siteledger_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/siteledger"
)

func post(t *testing.T, f *apptest.Fixture, siteID id.ID, amount int64, typ siteledger.EntryType) *siteledger.Entry {
	t.Helper()
	e, err := f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{
		SiteID: siteID,
		Amount: types.NewMoney(amount),
		Type:   typ,
	})
	require.NoError(t, err)
	return e
}

func TestPostExpenseAppendsAndIncrements(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 10000)

	e1 := post(t, f, site.ID, 5000, siteledger.TypePurchase)
	e2 := post(t, f, site.ID, 250, siteledger.TypeRental)

	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, int64(2), e2.Seq)
	assert.Equal(t, siteledger.KindExpense, e2.Kind)
	assert.True(t, e2.ExpensesAfter.Equal(types.NewMoney(5250)))
	assert.True(t, f.Expenses(t, site.ID).Equal(types.NewMoney(5250)))

	summary, err := f.Services.Sites.Summary(f.Ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, summary.Remaining.Equal(types.NewMoney(4750)))
	assert.False(t, summary.OverBudget)
	assert.True(t, summary.ByType[siteledger.TypePurchase].Equal(types.NewMoney(5000)))
}

func TestPostExpenseValidation(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)

	_, err := f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{SiteID: site.ID, Amount: types.Zero(), Type: siteledger.TypePurchase})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{SiteID: site.ID, Amount: types.NewMoney(1), Type: "bribe"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{SiteID: id.New(), Amount: types.NewMoney(1), Type: siteledger.TypePurchase})
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, f.Entries(t, site.ID))
}

func TestConcurrentPostingsSumExactly(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.Services.Sites.PostExpense(f.Ctx, f.Accountant, siteledger.PostExpenseInput{
				SiteID: site.ID, Amount: types.MustMoney("10.25"), Type: siteledger.TypeAttendance,
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.Services.Sites.Get(f.Ctx, site.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.Expenses(t, site.ID).Equal(types.MustMoney("205")))
	entries := f.Entries(t, site.ID)
	require.Len(t, entries, 20)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	rec, err := f.Services.Sites.Reconcile(f.Ctx, f.Accountant, site.ID, false)
	require.NoError(t, err)
	assert.True(t, rec.InSync())
}

func TestBudgetAlertFiresOnceWhenCrossed(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 1000)

	post(t, f, site.ID, 900, siteledger.TypePurchase)
	assert.Empty(t, f.Events.OfType(notification.TypeBudgetAlert))

	post(t, f, site.ID, 200, siteledger.TypePurchase)
	post(t, f, site.ID, 50, siteledger.TypeRental)

	alerts := f.Events.OfType(notification.TypeBudgetAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, f.Manager.UserID(), alerts[0].UserID)
	assert.Equal(t, site.ID, id.Value(alerts[0].RelatedID))

	// alerts never reject postings
	assert.True(t, f.Expenses(t, site.ID).Equal(types.NewMoney(1150)))
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	post(t, f, site.ID, 300, siteledger.TypePurchase)

	require.NoError(t, f.Storage.Sites.SetExpenses(f.Ctx, site.ID, types.NewMoney(999)))

	rec, err := f.Services.Sites.Reconcile(f.Ctx, f.Accountant, site.ID, false)
	require.NoError(t, err)
	assert.False(t, rec.InSync())
	assert.False(t, rec.Repaired)

	rec, err = f.Services.Sites.Reconcile(f.Ctx, f.Accountant, site.ID, true)
	require.NoError(t, err)
	assert.True(t, rec.Repaired)
	assert.True(t, f.Expenses(t, site.ID).Equal(types.NewMoney(300)))

	_, err = f.Services.Sites.Reconcile(f.Ctx, f.Storekeeper, site.ID, true)
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestSiteLifecycle(t *testing.T) {
	f := apptest.New(t)

	_, err := f.Services.Sites.Create(f.Ctx, f.Manager, siteledger.CreateSiteInput{Name: "X"})
	assert.True(t, apperror.IsUnauthorized(err))

	site, err := f.Services.Sites.Create(f.Ctx, f.Admin, siteledger.CreateSiteInput{Name: "X", Budget: types.NewMoney(5)})
	require.NoError(t, err)
	assert.Equal(t, siteledger.StatusPlanning, site.Status)

	_, err = f.Services.Sites.ChangeStatus(f.Ctx, f.Admin, site.ID, siteledger.StatusCompleted)
	assert.True(t, apperror.IsInvalidState(err))

	site, err = f.Services.Sites.ChangeStatus(f.Ctx, f.Admin, site.ID, siteledger.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, siteledger.StatusActive, site.Status)
}
