// Package actor defines the explicit, immutable identity under which every
// core operation runs. The HTTP layer builds an Actor from the bearer token
// and passes it by value; services never read identity from ambient state.
package actor

import (
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
)

// Role is the coarse authorization role carried by the token.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleAccountant  Role = "accountant"
	RoleStorekeeper Role = "storekeeper"
	RoleSupervisor  Role = "supervisor"
	RoleViewer      Role = "viewer"
	// RoleSystem is used by background jobs (reconciliation, outbox relay).
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAccountant, RoleStorekeeper, RoleSupervisor, RoleViewer, RoleSystem:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation.
// Fields are unexported so a value cannot be mutated after construction.
type Actor struct {
	userID id.ID
	role   Role
	name   string
}

// New creates an Actor.
func New(userID id.ID, role Role, name string) Actor {
	return Actor{userID: userID, role: role, name: name}
}

// System returns the actor used by background jobs.
func System() Actor {
	return Actor{userID: id.Nil(), role: RoleSystem, name: "system"}
}

func (a Actor) UserID() id.ID { return a.userID }
func (a Actor) Role() Role    { return a.role }
func (a Actor) Name() string  { return a.name }

// IsZero reports whether a carries no identity at all.
func (a Actor) IsZero() bool {
	return a.role == "" && id.IsNil(a.userID)
}

// Is reports whether the actor has one of roles.
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.role == r {
			return true
		}
	}
	return false
}

// Authorize checks the actor against the policy for action.
func (a Actor) Authorize(action Action) error {
	if a.IsZero() || !a.role.Valid() {
		return apperror.NewUnauthorized(string(action), string(a.role))
	}
	if a.role == RoleAdmin || a.role == RoleSystem {
		return nil
	}
	for _, allowed := range policy[action] {
		if allowed == a.role {
			return nil
		}
	}
	return apperror.NewUnauthorized(string(action), string(a.role))
}
