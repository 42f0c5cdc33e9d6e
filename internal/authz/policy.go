package authz

import "github.com/bankcore/bankcore/internal/domain"

// Policy decides whether an actor may operate on an account owned by the
// given user. Injected so authorization rules can evolve without touching
// ledger logic.
type Policy interface {
	CanAccess(actor domain.Actor, ownerID int64) bool
}

// OwnerOrAdmin is the default policy: admins may touch any account, everyone
// else only their own.
type OwnerOrAdmin struct{}

// CanAccess reports whether the actor is an admin or owns the account.
func (OwnerOrAdmin) CanAccess(actor domain.Actor, ownerID int64) bool {
	return actor.Role == domain.RoleAdmin || actor.ID == ownerID
}
