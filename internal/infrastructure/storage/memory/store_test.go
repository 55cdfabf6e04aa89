package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/contractor"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/domain/stock"
	"buildledger/internal/domain/wage"
	"buildledger/internal/infrastructure/storage/memory"
)

func newSite(t *testing.T, store *memory.Store) *siteledger.Site {
	t.Helper()
	site := &siteledger.Site{
		ID:       id.New(),
		Name:     "Tower A",
		Budget:   types.NewMoney(10000),
		Expenses: types.Zero(),
		Status:   siteledger.StatusActive,
	}
	require.NoError(t, store.Sites().Create(context.Background(), site))
	return site
}

func TestFailedUnitRestoresEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	site := newSite(t, store)
	sites := store.Sites()

	_, err := sites.AddExpenses(ctx, site.ID, types.NewMoney(100))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := sites.AddExpenses(ctx, site.ID, types.NewMoney(500)); err != nil {
			return err
		}
		if err := sites.AppendEntry(ctx, &siteledger.Entry{ID: id.New(), SiteID: site.ID, Kind: siteledger.KindExpense, Amount: types.NewMoney(500)}); err != nil {
			return err
		}
		if _, err := store.Stock().CreditLine(ctx, &site.ID, stock.Identity{Name: "cement", Category: "binder", Unit: "bag"}, types.Zero(), types.NewQuantity(5)); err != nil {
			return err
		}
		if err := sites.Create(ctx, &siteledger.Site{ID: id.New(), Name: "temp"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := sites.GetByID(ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, got.Expenses.Equal(types.NewMoney(100)))

	entries, err := sites.ListEntries(ctx, site.ID, siteledger.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	lines, err := store.Stock().List(ctx, stock.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)

	all, err := sites.List(ctx, siteledger.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNestedUnitJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	site := newSite(t, store)

	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		inner := store.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := store.Sites().AddExpenses(ctx, site.ID, types.NewMoney(10))
			return err
		})
		require.NoError(t, inner)
		return errors.New("outer fails")
	})
	require.Error(t, err)

	got, err := store.Sites().GetByID(ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, got.Expenses.IsZero())
}

func TestAfterCommitHooks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	site := newSite(t, store)

	var seen types.Money
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Sites().AddExpenses(ctx, site.ID, types.NewMoney(7)); err != nil {
			return err
		}
		tx.AfterCommit(ctx, func(ctx context.Context) {
			// the hook runs after the store lock is released
			got, err := store.Sites().GetByID(ctx, site.ID)
			require.NoError(t, err)
			seen = got.Expenses
		})
		return nil
	})
	require.NoError(t, err)
	assert.True(t, seen.Equal(types.NewMoney(7)))

	ran := false
	_ = store.RunInTransaction(ctx, func(ctx context.Context) error {
		tx.AfterCommit(ctx, func(context.Context) { ran = true })
		return errors.New("rolled back")
	})
	assert.False(t, ran)
}

func TestPanicRollsBackAndUnlocks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	site := newSite(t, store)

	assert.Panics(t, func() {
		_ = store.RunInTransaction(ctx, func(ctx context.Context) error {
			_, _ = store.Sites().AddExpenses(ctx, site.ID, types.NewMoney(1))
			panic("bad")
		})
	})

	got, err := store.Sites().GetByID(ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, got.Expenses.IsZero())
}

func TestSiteEntrySeqIsGaplessAfterRollback(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	site := newSite(t, store)
	sites := store.Sites()

	entry := func() *siteledger.Entry {
		return &siteledger.Entry{ID: id.New(), SiteID: site.ID, Kind: siteledger.KindExpense, Amount: types.NewMoney(1)}
	}
	require.NoError(t, sites.AppendEntry(ctx, entry()))
	_ = store.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, sites.AppendEntry(ctx, entry()))
		return errors.New("undo")
	})
	e := entry()
	require.NoError(t, sites.AppendEntry(ctx, e))
	assert.Equal(t, int64(2), e.Seq)
}

func TestStockConditionalDecrement(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := store.Stock()
	ident := stock.Identity{Name: "cement", Category: "binder", Unit: "bag"}

	line, err := repo.CreditLine(ctx, nil, ident, types.NewMoney(12), types.NewQuantity(10))
	require.NoError(t, err)
	assert.Nil(t, line.SiteID)

	again, err := repo.CreditLine(ctx, nil, ident, types.NewMoney(99), types.NewQuantity(5))
	require.NoError(t, err)
	assert.Equal(t, line.ID, again.ID)
	assert.Equal(t, types.NewQuantity(15), again.Quantity)
	assert.True(t, again.UnitCost.Equal(types.NewMoney(12)))

	ok, err := repo.DecrementIfAvailable(ctx, line.ID, types.NewQuantity(16))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DecrementIfAvailable(ctx, line.ID, types.NewQuantity(15))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.DecrementIfAvailable(ctx, id.New(), types.NewQuantity(1))
	assert.True(t, apperror.IsNotFound(err))
}

func TestAssignmentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := store.Contractors()
	a := &contractor.Assignment{ContractorID: id.New(), SiteID: id.New(), Balance: types.Zero(), AssignedAt: time.Now()}

	created, err := repo.AddAssignment(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.AddAssignment(ctx, a)
	require.NoError(t, err)
	assert.False(t, created)

	balance, err := repo.AdjustBalance(ctx, a.ContractorID, a.SiteID, types.NewMoney(-300))
	require.NoError(t, err)
	assert.True(t, balance.Equal(types.NewMoney(-300)))
}

func TestMarkPaidSkipsPaidRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := store.Wages()
	day := wage.Day(time.Now())

	a1 := &wage.Attendance{ID: id.New(), EmployeeID: id.New(), SiteID: id.New(), Date: day, Status: wage.Present, DailyWage: types.NewMoney(50)}
	a2 := &wage.Attendance{ID: id.New(), EmployeeID: id.New(), SiteID: id.New(), Date: day, Status: wage.Present, DailyWage: types.NewMoney(50)}
	require.NoError(t, repo.CreateAttendance(ctx, a1))
	require.NoError(t, repo.CreateAttendance(ctx, a2))

	dup := *a1
	dup.ID = id.New()
	err := repo.CreateAttendance(ctx, &dup)
	assert.Equal(t, apperror.CodeDuplicate, apperror.Code(err))

	n, err := repo.MarkPaid(ctx, []id.ID{a1.ID}, id.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.MarkPaid(ctx, []id.ID{a1.ID, a2.ID, a2.ID}, id.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
