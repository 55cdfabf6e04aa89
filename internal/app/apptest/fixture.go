// Package apptest builds a fully wired in-memory system for service tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"buildledger/internal/app"
	"buildledger/internal/core/actor"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
	"buildledger/internal/domain/notification"
	"buildledger/internal/domain/siteledger"
	"buildledger/internal/infrastructure/storage/memory"
)

// Fixture is a wired system plus one actor per role.
type Fixture struct {
	Ctx      context.Context
	Storage  *app.Storage
	Store    *memory.Store
	Services *app.Services
	Events   *RecordingPublisher

	Admin       actor.Actor
	Manager     actor.Actor
	Accountant  actor.Actor
	Storekeeper actor.Actor
	Supervisor  actor.Actor
	Viewer      actor.Actor
}

// New builds a fixture. opts may override lock, rule or publisher settings.
func New(t *testing.T, opts ...func(*app.Options)) *Fixture {
	t.Helper()

	storage, store := app.MemoryStorage(time.Hour)
	events := &RecordingPublisher{}
	o := app.Options{
		LockTTL:       2 * time.Second,
		Publisher:     events,
		NotifyTimeout: time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}

	services, err := app.NewServices(storage, o)
	require.NoError(t, err)

	return &Fixture{
		Ctx:         context.Background(),
		Storage:     storage,
		Store:       store,
		Services:    services,
		Events:      events,
		Admin:       actor.New(id.New(), actor.RoleAdmin, "admin"),
		Manager:     actor.New(id.New(), actor.RoleManager, "manager"),
		Accountant:  actor.New(id.New(), actor.RoleAccountant, "accountant"),
		Storekeeper: actor.New(id.New(), actor.RoleStorekeeper, "storekeeper"),
		Supervisor:  actor.New(id.New(), actor.RoleSupervisor, "supervisor"),
		Viewer:      actor.New(id.New(), actor.RoleViewer, "viewer"),
	}
}

// Site creates an active site managed by the fixture's manager.
func (f *Fixture) Site(t *testing.T, name string, budget int64) *siteledger.Site {
	t.Helper()
	managerID := f.Manager.UserID()
	site, err := f.Services.Sites.Create(f.Ctx, f.Admin, siteledger.CreateSiteInput{
		Name:      name,
		Location:  name + " street",
		Budget:    types.NewMoney(budget),
		ManagerID: &managerID,
	})
	require.NoError(t, err)
	site, err = f.Services.Sites.ChangeStatus(f.Ctx, f.Admin, site.ID, siteledger.StatusActive)
	require.NoError(t, err)
	return site
}

// Expenses reads the cached expense total of a site.
func (f *Fixture) Expenses(t *testing.T, siteID id.ID) types.Money {
	t.Helper()
	site, err := f.Services.Sites.Get(f.Ctx, siteID)
	require.NoError(t, err)
	return site.Expenses
}

// Entries reads a site's log.
func (f *Fixture) Entries(t *testing.T, siteID id.ID) []*siteledger.Entry {
	t.Helper()
	entries, err := f.Services.Sites.Entries(f.Ctx, siteID, siteledger.EntryFilter{})
	require.NoError(t, err)
	return entries
}

// Notifications lists everything addressed to userID.
func (f *Fixture) Notifications(t *testing.T, userID id.ID) []*notification.Notification {
	t.Helper()
	list, err := f.Storage.Notifications.ListByUser(f.Ctx, userID, notification.ListFilter{})
	require.NoError(t, err)
	return list
}
