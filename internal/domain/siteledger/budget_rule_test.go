package siteledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/types"
)

func TestDefaultBudgetRuleCrossing(t *testing.T) {
	rule := MustBudgetRule("")
	budget := types.NewMoney(1000)

	crossed, err := rule.Crossed(budget, types.NewMoney(900), types.NewMoney(1001))
	require.NoError(t, err)
	assert.True(t, crossed)

	crossed, err = rule.Crossed(budget, types.NewMoney(1100), types.NewMoney(1200))
	require.NoError(t, err)
	assert.False(t, crossed, "already over budget")

	crossed, err = rule.Crossed(types.Zero(), types.Zero(), types.NewMoney(5))
	require.NoError(t, err)
	assert.False(t, crossed, "no budget set")
}

func TestCustomBudgetRule(t *testing.T) {
	rule, err := NewBudgetRule("remaining < budget * 0.1")
	require.NoError(t, err)

	hit, err := rule.Eval(types.NewMoney(1000), types.NewMoney(950))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestBudgetRuleRejectsBadExpressions(t *testing.T) {
	_, err := NewBudgetRule("expenses +")
	assert.Error(t, err)

	_, err = NewBudgetRule("expenses")
	assert.Error(t, err, "non-bool result")

	_, err = NewBudgetRule("spent > 1.0")
	assert.Error(t, err, "unknown variable")
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPlanning.CanTransitionTo(StatusActive))
	assert.True(t, StatusActive.CanTransitionTo(StatusOnHold))
	assert.True(t, StatusOnHold.CanTransitionTo(StatusActive))
	assert.True(t, StatusOnHold.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusPlanning.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusActive))
}
