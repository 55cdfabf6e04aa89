package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
)

func TestAuthorize(t *testing.T) {
	admin := New(id.New(), RoleAdmin, "root")
	manager := New(id.New(), RoleManager, "mgr")
	viewer := New(id.New(), RoleViewer, "ro")

	assert.NoError(t, admin.Authorize(ActionDecideTransfer))
	assert.NoError(t, manager.Authorize(ActionDecideTransfer))
	assert.NoError(t, System().Authorize(ActionReconcile))

	err := viewer.Authorize(ActionDecideTransfer)
	require.Error(t, err)
	assert.True(t, apperror.IsUnauthorized(err))

	assert.True(t, apperror.IsUnauthorized(Actor{}.Authorize(ActionViewLedgers)))
	assert.True(t, apperror.IsUnauthorized(New(id.New(), Role("ghost"), "").Authorize(ActionViewLedgers)))
}

func TestManageSitesIsAdminOnly(t *testing.T) {
	for _, r := range []Role{RoleManager, RoleAccountant, RoleStorekeeper, RoleSupervisor, RoleViewer} {
		assert.Error(t, New(id.New(), r, "").Authorize(ActionManageSites), r)
	}
}

func TestContextRoundTrip(t *testing.T) {
	a := New(id.New(), RoleAccountant, "acc")
	got, ok := FromContext(WithActor(context.Background(), a))
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestAllowedReturnsCopy(t *testing.T) {
	roles := Allowed(ActionConsumeStock)
	roles[0] = RoleViewer
	assert.NotEqual(t, RoleViewer, Allowed(ActionConsumeStock)[0])
}
