package authz

import (
	"testing"

	"github.com/bankcore/bankcore/internal/domain"
)

func TestOwnerOrAdmin(t *testing.T) {
	policy := OwnerOrAdmin{}

	if !policy.CanAccess(domain.Actor{ID: 1}, 1) {
		t.Fatal("owner denied access to own account")
	}
	if policy.CanAccess(domain.Actor{ID: 1}, 2) {
		t.Fatal("non-owner granted access")
	}
	if !policy.CanAccess(domain.Actor{ID: 1, Role: domain.RoleAdmin}, 2) {
		t.Fatal("admin denied access")
	}
}
