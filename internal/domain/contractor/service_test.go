package contractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/contractor"
	"buildledger/internal/domain/siteledger"
)

type ContractorSuite struct {
	suite.Suite
	f     *apptest.Fixture
	site  *siteledger.Site
	mason *contractor.Contractor
}

func TestContractorSuite(t *testing.T) {
	suite.Run(t, new(ContractorSuite))
}

func (s *ContractorSuite) SetupTest() {
	s.f = apptest.New(s.T())
	s.site = s.f.Site(s.T(), "A", 0)

	c, err := s.f.Services.Contractors.Create(s.f.Ctx, s.f.Manager, contractor.CreateInput{Name: "Mason Co", Specialty: "masonry"})
	s.Require().NoError(err)
	s.mason = c

	_, created, err := s.f.Services.Contractors.AssignSite(s.f.Ctx, s.f.Manager, c.ID, s.site.ID)
	s.Require().NoError(err)
	s.Require().True(created)
}

func (s *ContractorSuite) post(typ contractor.TxType, amount int64) *contractor.Transaction {
	txn, err := s.f.Services.Contractors.PostTransaction(s.f.Ctx, s.f.Accountant, contractor.PostInput{
		ContractorID: s.mason.ID,
		SiteID:       s.site.ID,
		Type:         typ,
		Amount:       types.NewMoney(amount),
	})
	s.Require().NoError(err)
	return txn
}

func (s *ContractorSuite) cached() types.Money {
	c, err := s.f.Services.Contractors.Get(s.f.Ctx, s.mason.ID)
	s.Require().NoError(err)
	s.Require().Len(c.Assignments, 1)
	return c.Assignments[0].Balance
}

func (s *ContractorSuite) TestSignConvention() {
	s.True(s.post(contractor.TypeExpense, 1000).BalanceAfter.Equal(types.NewMoney(1000)))
	s.True(s.post(contractor.TypeAdvance, 400).BalanceAfter.Equal(types.NewMoney(600)))
	s.True(s.post(contractor.TypeAdditionalPayment, 50).BalanceAfter.Equal(types.NewMoney(650)))

	balance, err := s.f.Services.Contractors.Balance(s.f.Ctx, s.mason.ID, s.site.ID)
	s.Require().NoError(err)
	s.True(balance.Equal(types.NewMoney(650)))
	s.True(s.cached().Equal(balance))
}

func (s *ContractorSuite) TestRecomputedEqualsCachedAfterEveryPosting() {
	for _, p := range []struct {
		typ    contractor.TxType
		amount int64
	}{
		{contractor.TypeAdvance, 300},
		{contractor.TypeExpense, 120},
		{contractor.TypeAdvance, 75},
		{contractor.TypeAdditionalPayment, 10},
	} {
		s.post(p.typ, p.amount)
		balance, err := s.f.Services.Contractors.Balance(s.f.Ctx, s.mason.ID, s.site.ID)
		s.Require().NoError(err)
		s.True(s.cached().Equal(balance))
	}
	s.True(s.cached().Equal(types.NewMoney(-245)))
}

func (s *ContractorSuite) TestAssignSiteIsIdempotent() {
	a, created, err := s.f.Services.Contractors.AssignSite(s.f.Ctx, s.f.Manager, s.mason.ID, s.site.ID)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(s.site.ID, a.SiteID)

	_, _, err = s.f.Services.Contractors.AssignSite(s.f.Ctx, s.f.Manager, id.New(), s.site.ID)
	s.True(apperror.IsNotFound(err))
	_, _, err = s.f.Services.Contractors.AssignSite(s.f.Ctx, s.f.Manager, s.mason.ID, id.New())
	s.True(apperror.IsNotFound(err))
}

func (s *ContractorSuite) TestPostValidation() {
	other := s.f.Site(s.T(), "B", 0)
	cases := map[string]contractor.PostInput{
		"zero amount":  {ContractorID: s.mason.ID, SiteID: s.site.ID, Type: contractor.TypeAdvance},
		"unknown type": {ContractorID: s.mason.ID, SiteID: s.site.ID, Type: "tip", Amount: types.NewMoney(1)},
		"not assigned": {ContractorID: s.mason.ID, SiteID: other.ID, Type: contractor.TypeAdvance, Amount: types.NewMoney(1)},
	}
	for name, in := range cases {
		_, err := s.f.Services.Contractors.PostTransaction(s.f.Ctx, s.f.Accountant, in)
		s.True(apperror.IsValidation(err), name)
	}

	_, err := s.f.Services.Contractors.PostTransaction(s.f.Ctx, s.f.Accountant, contractor.PostInput{
		ContractorID: id.New(), SiteID: s.site.ID, Type: contractor.TypeAdvance, Amount: types.NewMoney(1),
	})
	s.True(apperror.IsNotFound(err))

	txns, err := s.f.Services.Contractors.Transactions(s.f.Ctx, s.mason.ID, s.site.ID)
	s.Require().NoError(err)
	s.Empty(txns)
}

func (s *ContractorSuite) TestReconcile() {
	s.post(contractor.TypeExpense, 500)
	s.Require().NoError(s.f.Storage.Contractors.SetBalance(s.f.Ctx, s.mason.ID, s.site.ID, types.NewMoney(1)))

	rec, err := s.f.Services.Contractors.Reconcile(s.f.Ctx, s.f.Accountant, s.mason.ID, s.site.ID, true)
	s.Require().NoError(err)
	s.True(rec.Repaired)
	s.True(rec.Drift.Equal(types.NewMoney(-499)))
	s.True(s.cached().Equal(types.NewMoney(500)))

	all, err := s.f.Services.Contractors.ReconcileAll(s.f.Ctx, s.f.Accountant, false)
	s.Require().NoError(err)
	s.Len(all, 1)
	s.True(all[0].Drift.IsZero())
}

func TestTxTypeSign(t *testing.T) {
	require.Equal(t, int64(-1), contractor.TypeAdvance.Sign())
	assert.True(t, contractor.TypeExpense.Signed(types.NewMoney(3)).Equal(types.NewMoney(3)))
	assert.Equal(t, int64(0), contractor.TxType("x").Sign())
}
