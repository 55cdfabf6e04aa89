package wage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/domain/wage"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func employee(t *testing.T, f *apptest.Fixture, name string, daily int64) *wage.Employee {
	t.Helper()
	e, err := f.Services.Wages.CreateEmployee(f.Ctx, f.Manager, wage.CreateEmployeeInput{Name: name, Trade: "mason", DailyWage: types.NewMoney(daily)})
	require.NoError(t, err)
	return e
}

func mark(t *testing.T, f *apptest.Fixture, e *wage.Employee, siteID id.ID, day int, status wage.AttendanceStatus) *wage.Attendance {
	t.Helper()
	a, err := f.Services.Wages.MarkAttendance(f.Ctx, f.Supervisor, wage.MarkAttendanceInput{
		EmployeeID: e.ID,
		SiteID:     siteID,
		Date:       monday.AddDate(0, 0, day),
		Status:     status,
	})
	require.NoError(t, err)
	return a
}

func TestCalculateSalary(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	e := employee(t, f, "Ravi", 800)

	mark(t, f, e, site.ID, 0, wage.Present)
	mark(t, f, e, site.ID, 1, wage.Absent)
	paid := mark(t, f, e, site.ID, 2, wage.Present)
	mark(t, f, e, site.ID, 9, wage.Present)

	_, err := f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, []id.ID{paid.ID})
	require.NoError(t, err)

	salary, err := f.Services.Wages.CalculateSalary(f.Ctx, f.Accountant, e.ID, wage.DateRange{From: monday, To: monday.AddDate(0, 0, 6)})
	require.NoError(t, err)
	assert.Equal(t, 2, salary.DaysPresent)
	assert.True(t, salary.Amount.Equal(types.NewMoney(1600)), "paid days still count")
	assert.True(t, salary.PaidAmount.Equal(types.NewMoney(800)))

	_, err = f.Services.Wages.CalculateSalary(f.Ctx, f.Accountant, e.ID, wage.DateRange{From: monday.AddDate(0, 0, 1), To: monday})
	assert.True(t, apperror.IsValidation(err))
}

func TestAttendanceSnapshotsWageAndRejectsDuplicates(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	e := employee(t, f, "Ravi", 800)

	a := mark(t, f, e, site.ID, 0, wage.Present)
	assert.True(t, a.DailyWage.Equal(types.NewMoney(800)))
	assert.Equal(t, f.Supervisor.UserID(), a.MarkedBy)

	_, err := f.Services.Wages.MarkAttendance(f.Ctx, f.Supervisor, wage.MarkAttendanceInput{
		EmployeeID: e.ID, SiteID: site.ID, Date: monday.Add(5 * time.Hour), Status: wage.Absent,
	})
	assert.Equal(t, apperror.CodeDuplicate, apperror.Code(err))
}

func TestMarkAttendancesPaidPostsPerSite(t *testing.T) {
	f := apptest.New(t)
	siteA := f.Site(t, "A", 0)
	siteB := f.Site(t, "B", 0)
	e1 := employee(t, f, "Ravi", 800)
	e2 := employee(t, f, "Lena", 1000)

	ids := []id.ID{
		mark(t, f, e1, siteA.ID, 0, wage.Present).ID,
		mark(t, f, e1, siteA.ID, 1, wage.Present).ID,
		mark(t, f, e2, siteA.ID, 0, wage.Absent).ID,
		mark(t, f, e2, siteB.ID, 1, wage.Present).ID,
	}

	batch, err := f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, append(ids, ids[0]))
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Count)
	assert.True(t, batch.Total.Equal(types.NewMoney(2600)))
	require.Len(t, batch.Postings, 2)

	entriesA := f.Entries(t, siteA.ID)
	require.Len(t, entriesA, 1)
	assert.Equal(t, siteledger.TypeAttendance, entriesA[0].Type)
	assert.True(t, entriesA[0].Amount.Equal(types.NewMoney(1600)))
	assert.Equal(t, batch.ID, id.Value(entriesA[0].RelatedID))
	assert.True(t, f.Expenses(t, siteB.ID).Equal(types.NewMoney(1000)))

	_, err = f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, ids[:1])
	assert.True(t, apperror.IsInvalidState(err))
	assert.Len(t, f.Entries(t, siteA.ID), 1, "no duplicate site entry")
}

func TestMarkAttendancesPaidIsAllOrNothing(t *testing.T) {
	f := apptest.New(t)
	site := f.Site(t, "A", 0)
	e := employee(t, f, "Ravi", 500)

	a1 := mark(t, f, e, site.ID, 0, wage.Present)
	a2 := mark(t, f, e, site.ID, 1, wage.Present)
	a3 := mark(t, f, e, site.ID, 2, wage.Present)

	_, err := f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, []id.ID{a2.ID})
	require.NoError(t, err)
	before := f.Expenses(t, site.ID)

	_, err = f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, []id.ID{a1.ID, a2.ID, a3.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))

	unpaid := false
	records, err := f.Services.Wages.ListAttendance(f.Ctx, wage.AttendanceFilter{IsPaid: &unpaid})
	require.NoError(t, err)
	assert.Len(t, records, 2, "a1 and a3 stay unpaid")
	assert.True(t, f.Expenses(t, site.ID).Equal(before))
	assert.Len(t, f.Entries(t, site.ID), 1)

	_, err = f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Accountant, []id.ID{a1.ID, id.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.Services.Wages.MarkAttendancesPaid(f.Ctx, f.Supervisor, []id.ID{a1.ID})
	assert.True(t, apperror.IsUnauthorized(err))
}
