package grants

import (
	"time"

	"github.com/google/uuid"
)

// Actions holds the four independent capability booleans of a grant.
type Actions struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// Grant is the (tenant, role, module) capability row. At most one row exists
// per composite key; absence means every action on the module is denied for
// that role.
type Grant struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	RoleSlug  string    `json:"role_slug"`
	Module    string    `json:"module"`
	Actions   Actions   `json:"actions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Set indexes a tenant's grants by (role slug, module) for constant-time
// decision lookups.
type Set struct {
	byKey map[string]Actions
}

// NewSet builds a Set from grant rows. Later rows win on duplicate keys,
// though the store guarantees at most one row per key.
func NewSet(rows []Grant) Set {
	byKey := make(map[string]Actions, len(rows))
	for _, g := range rows {
		byKey[setKey(g.RoleSlug, g.Module)] = g.Actions
	}
	return Set{byKey: byKey}
}

// Lookup returns the actions granted to role on module, reporting whether a
// grant row exists at all.
func (s Set) Lookup(roleSlug, module string) (Actions, bool) {
	a, ok := s.byKey[setKey(roleSlug, module)]
	return a, ok
}

// Len returns the number of grant rows in the set.
func (s Set) Len() int {
	return len(s.byKey)
}

func setKey(roleSlug, module string) string {
	return roleSlug + "\x00" + module
}
