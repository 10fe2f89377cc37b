package access

import (
	"github.com/clinicore/clinicore/internal/grants"
	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/roles"
)

// IsPrivileged reports whether the role bypasses all grant lookups. This is
// the single place admin-tier status is defined; nothing else in the
// codebase compares role slugs against admin constants.
func IsPrivileged(roleSlug string) bool {
	return roleSlug == roles.SlugAdmin || roleSlug == roles.SlugSuperadmin
}

// Decide maps (principal, module, action) onto an allow/deny decision for a
// loaded grant set. It is pure: identical inputs always yield identical
// outputs within one grant set.
//
// A principal without a tenant is denied everything. An admin-tier principal
// is allowed everything. Otherwise the grant row for (role, module) supplies
// the answer, with no row meaning deny for every action.
func Decide(p identity.Principal, module Module, action Action, set grants.Set) bool {
	if !p.HasTenant() {
		return false
	}
	if IsPrivileged(p.RoleSlug) {
		return true
	}
	granted, ok := set.Lookup(p.RoleSlug, string(module))
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return granted.View
	case ActionCreate:
		return granted.Create
	case ActionEdit:
		return granted.Edit
	case ActionDelete:
		return granted.Delete
	}
	return false
}
