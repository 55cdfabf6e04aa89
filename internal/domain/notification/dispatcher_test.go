package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/notification"
	"buildledger/internal/infrastructure/storage/memory"
)

func TestResolveByRecipient(t *testing.T) {
	f := apptest.New(t)
	d := f.Services.Notifications
	related := id.New()

	n, err := d.Notify(f.Ctx, notification.NotifyInput{
		UserID:    f.Storekeeper.UserID(),
		Type:      notification.TypeTransferRequest,
		RelatedID: &related,
		Message:   "approve?",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, n.Status)
	require.Len(t, f.Events.Published(), 1)

	_, err = d.Resolve(f.Ctx, f.Viewer, n.ID, notification.StatusApproved)
	assert.True(t, apperror.IsUnauthorized(err), "viewer is neither recipient nor resolver")

	_, err = d.Resolve(f.Ctx, f.Storekeeper, n.ID, notification.StatusPending)
	assert.True(t, apperror.IsValidation(err))

	resolved, err := d.Resolve(f.Ctx, f.Storekeeper, n.ID, notification.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusApproved, resolved.Status)
	assert.Equal(t, f.Storekeeper.UserID(), id.Value(resolved.ResolvedBy))

	_, err = d.Resolve(f.Ctx, f.Storekeeper, n.ID, notification.StatusRejected)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestManagerResolvesOthersNotifications(t *testing.T) {
	f := apptest.New(t)
	d := f.Services.Notifications

	n, err := d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Accountant.UserID(), Type: notification.TypeBudgetAlert})
	require.NoError(t, err)

	resolved, err := d.Resolve(f.Ctx, f.Manager, n.ID, notification.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusRejected, resolved.Status)

	_, err = d.Resolve(f.Ctx, f.Manager, id.New(), notification.StatusRejected)
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolveRelatedOnlyTouchesPending(t *testing.T) {
	f := apptest.New(t)
	d := f.Services.Notifications
	related := id.New()

	first, err := d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Manager.UserID(), Type: notification.TypeTransferRequest, RelatedID: &related})
	require.NoError(t, err)
	_, err = d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Admin.UserID(), Type: notification.TypeTransferRequest, RelatedID: &related})
	require.NoError(t, err)
	_, err = d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Manager.UserID(), Type: notification.TypeBudgetAlert})
	require.NoError(t, err)

	_, err = d.Resolve(f.Ctx, f.Manager, first.ID, notification.StatusRejected)
	require.NoError(t, err)

	by := f.Manager.UserID()
	count, err := d.ResolveRelated(f.Ctx, related, notification.StatusApproved, &by)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, n := range f.Notifications(t, f.Manager.UserID()) {
		if n.ID == first.ID {
			assert.Equal(t, notification.StatusRejected, n.Status, "an earlier outcome is kept")
		}
		if n.Type == notification.TypeBudgetAlert {
			assert.Equal(t, notification.StatusPending, n.Status)
		}
	}
}

func TestListForUser(t *testing.T) {
	f := apptest.New(t)
	d := f.Services.Notifications

	for range 3 {
		_, err := d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Manager.UserID(), Type: notification.TypeBudgetAlert})
		require.NoError(t, err)
	}
	_, err := d.Notify(f.Ctx, notification.NotifyInput{UserID: f.Viewer.UserID(), Type: notification.TypeBudgetAlert})
	require.NoError(t, err)

	list, err := d.ListForUser(f.Ctx, f.Manager, notification.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func TestEmitNeverFailsCaller(t *testing.T) {
	store := memory.New()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*notification.Notification")).
		Return(errors.New("broker down")).Once()
	d := notification.NewDispatcher(store, store.Notifications(), pub, 0)
	userID := id.New()

	d.Emit(context.Background(), notification.NotifyInput{UserID: userID, Type: notification.TypeBudgetAlert})

	select {
	case err := <-d.Errors():
		assert.ErrorContains(t, err, "broker down")
	default:
		t.Fatal("expected a delivery error")
	}
	pub.AssertExpectations(t)

	list, err := store.Notifications().ListByUser(context.Background(), userID, notification.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "a failed publish rolls back the notification")
}

func TestNotifyPublishesOnce(t *testing.T) {
	store := memory.New()
	pub := &mockPublisher{}
	userID := id.New()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(n *notification.Notification) bool {
		return n.UserID == userID && n.Status == notification.StatusPending
	})).Return(nil).Once()
	d := notification.NewDispatcher(store, store.Notifications(), pub, 0)

	n, err := d.Notify(context.Background(), notification.NotifyInput{
		UserID:  userID,
		Type:    notification.TypeBudgetAlert,
		Message: "over budget",
	})
	require.NoError(t, err)
	assert.Equal(t, "over budget", n.Message)
	pub.AssertExpectations(t)
}
