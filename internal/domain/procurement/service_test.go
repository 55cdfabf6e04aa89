package procurement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/procurement"
	"buildledger/internal/domain/siteledger"
)

func TestVerifiedPurchasePostsOnce(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 100000)
	svc := f.Services.Procurement

	p, err := svc.CreatePurchase(f.Ctx, f.Manager, procurement.CreatePurchaseInput{
		SiteID: site.ID,
		Vendor: "BuildMart",
		Items: []procurement.Item{
			{Name: "Cement", Category: "binder", Unit: "bag", Quantity: types.NewQuantity(100), UnitPrice: types.NewMoney(45), Stocked: true},
			{Name: "Delivery", Quantity: types.NewQuantity(1), UnitPrice: types.NewMoney(500)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusPending, p.Status)
	assert.True(t, p.TotalAmount.Equal(types.NewMoney(5000)))
	assert.Regexp(t, `^PUR-\d{4}-\d{5}$`, p.Number)
	assert.Empty(t, f.Entries(t, site.ID), "pending purchases do not post")

	verified, err := svc.VerifyPurchase(f.Ctx, f.Accountant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusVerified, verified.Status)

	entries := f.Entries(t, site.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, siteledger.TypePurchase, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(types.NewMoney(5000)))
	assert.Equal(t, p.ID, id.Value(entries[0].RelatedID))
	assert.True(t, f.Expenses(t, site.ID).Equal(types.NewMoney(5000)))

	lines, err := f.Services.Stock.ListBySite(f.Ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "only stocked items reach stock")
	assert.Equal(t, types.NewQuantity(100), lines[0].Quantity)
	assert.True(t, lines[0].UnitCost.Equal(types.NewMoney(45)))

	notices := f.Events.OfType(notification.TypePurchaseVerified)
	require.Len(t, notices, 1)
	assert.Equal(t, f.Manager.UserID(), notices[0].UserID)

	_, err = svc.VerifyPurchase(f.Ctx, f.Accountant, p.ID)
	assert.True(t, apperror.IsInvalidState(err))
	assert.Len(t, f.Entries(t, site.ID), 1)
}

func TestPurchaseValidation(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	svc := f.Services.Procurement
	item := procurement.Item{Name: "Sand", Unit: "t", Quantity: types.NewQuantity(1), UnitPrice: types.NewMoney(10)}

	_, err := svc.CreatePurchase(f.Ctx, f.Manager, procurement.CreatePurchaseInput{SiteID: site.ID, Items: []procurement.Item{item}})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreatePurchase(f.Ctx, f.Manager, procurement.CreatePurchaseInput{SiteID: site.ID, Vendor: "V"})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreatePurchase(f.Ctx, f.Manager, procurement.CreatePurchaseInput{SiteID: id.New(), Vendor: "V", Items: []procurement.Item{item}})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.VerifyPurchase(f.Ctx, f.Accountant, id.New())
	assert.True(t, apperror.IsNotFound(err))

	p, err := svc.CreatePurchase(f.Ctx, f.Manager, procurement.CreatePurchaseInput{SiteID: site.ID, Vendor: "V", Items: []procurement.Item{item}})
	require.NoError(t, err)
	_, err = svc.VerifyPurchase(f.Ctx, f.Storekeeper, p.ID)
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestRentalPostsOnlyWhenSiteScoped(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	svc := f.Services.Procurement
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	scoped, err := svc.CreateRental(f.Ctx, f.Manager, procurement.CreateRentalInput{
		SiteID: &site.ID, Machinery: "Excavator", Vendor: "HeavyCo", StartDate: start, Amount: types.NewMoney(1200),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^RNT-\d{4}-\d{5}$`, scoped.Number)

	unscoped, err := svc.CreateRental(f.Ctx, f.Manager, procurement.CreateRentalInput{
		Machinery: "Crane", Vendor: "HeavyCo", StartDate: start, Amount: types.NewMoney(900),
	})
	require.NoError(t, err)

	_, err = svc.VerifyRental(f.Ctx, f.Accountant, scoped.ID)
	require.NoError(t, err)
	_, err = svc.VerifyRental(f.Ctx, f.Accountant, unscoped.ID)
	require.NoError(t, err)

	entries := f.Entries(t, site.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, siteledger.TypeRental, entries[0].Type)
	assert.True(t, f.Expenses(t, site.ID).Equal(types.NewMoney(1200)))

	_, err = svc.VerifyRental(f.Ctx, f.Accountant, scoped.ID)
	assert.True(t, apperror.IsInvalidState(err))

	end := start.AddDate(0, 0, -1)
	_, err = svc.CreateRental(f.Ctx, f.Manager, procurement.CreateRentalInput{
		Machinery: "Crane", StartDate: start, EndDate: &end, Amount: types.NewMoney(1),
	})
	assert.True(t, apperror.IsValidation(err))
}
