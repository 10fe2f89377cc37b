package identity

import "github.com/google/uuid"

// Principal is the authenticated actor performing an action.
type Principal struct {
	ID          uuid.UUID
	TenantID    *uuid.UUID
	RoleSlug    string
	DisplayName string
}

// HasTenant reports whether the principal is affiliated with a tenant.
func (p Principal) HasTenant() bool {
	return p.TenantID != nil
}

// ResolutionState distinguishes the outcomes of identity resolution. A
// session without a profile is NOT denial and NOT permission: downstream
// permission logic must treat it as default-deny while the UI may still show
// a neutral loading or onboarding state.
type ResolutionState int

const (
	// StateAnonymous means no active session.
	StateAnonymous ResolutionState = iota
	// StateResolved means session and profile both loaded.
	StateResolved
	// StateNoProfile means a session exists but the profile is missing or
	// could not be fetched. The principal carries no tenant or role.
	StateNoProfile
)

// Resolution is the complete outcome of resolving the current actor.
type Resolution struct {
	State     ResolutionState
	Principal Principal
}

// Resolved reports whether a complete principal is available.
func (r Resolution) Resolved() bool {
	return r.State == StateResolved
}

// Profile is the persisted per-user record carrying tenant affiliation.
type Profile struct {
	UserID      uuid.UUID
	TenantID    *uuid.UUID
	RoleSlug    string
	DisplayName string
}
