package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clinicore/clinicore/internal/grants"
	"github.com/clinicore/clinicore/internal/identity"
)

func tenantPrincipal(role string) identity.Principal {
	tenantID := uuid.New()
	return identity.Principal{ID: uuid.New(), TenantID: &tenantID, RoleSlug: role}
}

func TestDecideDeniesWithoutTenant(t *testing.T) {
	p := identity.Principal{ID: uuid.New(), RoleSlug: "doctor"}
	set := grants.NewSet([]grants.Grant{
		{RoleSlug: "doctor", Module: "patients", Actions: grants.Actions{View: true, Create: true, Edit: true, Delete: true}},
	})

	for _, m := range Modules() {
		for _, a := range Actions() {
			assert.False(t, Decide(p, m, a, set), "module=%s action=%s", m, a)
		}
	}
}

func TestDecideAllowsPrivilegedRolesEverything(t *testing.T) {
	set := grants.NewSet(nil) // no rows at all

	for _, role := range []string{"admin", "superadmin"} {
		p := tenantPrincipal(role)
		for _, m := range Modules() {
			for _, a := range Actions() {
				assert.True(t, Decide(p, m, a, set), "role=%s module=%s action=%s", role, m, a)
			}
		}
	}
}

func TestDecideFollowsGrantRowExactly(t *testing.T) {
	p := tenantPrincipal("assistant")
	set := grants.NewSet([]grants.Grant{
		{RoleSlug: "assistant", Module: "patients", Actions: grants.Actions{View: true, Edit: true}},
	})

	assert.True(t, Decide(p, ModulePatients, ActionView, set))
	assert.True(t, Decide(p, ModulePatients, ActionEdit, set))
	assert.False(t, Decide(p, ModulePatients, ActionCreate, set))
	assert.False(t, Decide(p, ModulePatients, ActionDelete, set))
}

func TestDecideDeniesWhenNoRowExists(t *testing.T) {
	p := tenantPrincipal("doctor")
	set := grants.NewSet([]grants.Grant{
		{RoleSlug: "assistant", Module: "patients", Actions: grants.Actions{View: true}},
	})

	// Row exists for another role but not for this one.
	assert.False(t, Decide(p, ModulePatients, ActionView, set))
	// Row exists for this role on no module.
	assert.False(t, Decide(p, ModuleBilling, ActionView, set))
}

func TestDecideDeniesUnknownAction(t *testing.T) {
	p := tenantPrincipal("doctor")
	set := grants.NewSet([]grants.Grant{
		{RoleSlug: "doctor", Module: "patients", Actions: grants.Actions{View: true, Create: true, Edit: true, Delete: true}},
	})

	assert.False(t, Decide(p, ModulePatients, Action("export"), set))
	assert.False(t, Decide(p, ModulePatients, Action(""), set))
}

func TestDecideIsPureWithinOneSet(t *testing.T) {
	p := tenantPrincipal("doctor")
	set := grants.NewSet([]grants.Grant{
		{RoleSlug: "doctor", Module: "billing", Actions: grants.Actions{View: true}},
	})

	first := Decide(p, ModuleBilling, ActionView, set)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Decide(p, ModuleBilling, ActionView, set))
	}
}

func TestIsPrivileged(t *testing.T) {
	assert.True(t, IsPrivileged("admin"))
	assert.True(t, IsPrivileged("superadmin"))
	assert.False(t, IsPrivileged("doctor"))
	assert.False(t, IsPrivileged("assistant"))
	assert.False(t, IsPrivileged(""))
	assert.False(t, IsPrivileged("Admin"))
}

func TestParseActionAndModule(t *testing.T) {
	for _, a := range Actions() {
		parsed, ok := ParseAction(string(a))
		assert.True(t, ok)
		assert.Equal(t, a, parsed)
	}
	_, ok := ParseAction("manage")
	assert.False(t, ok)

	for _, m := range Modules() {
		parsed, ok := ParseModule(string(m))
		assert.True(t, ok)
		assert.Equal(t, m, parsed)
	}
	_, ok = ParseModule("reports")
	assert.False(t, ok)
}
