package roles

import (
	"time"

	"github.com/google/uuid"
)

// System role slugs built into the platform. They exist for every tenant and
// cannot be deleted or renamed.
const (
	SlugSuperadmin = "superadmin"
	SlugAdmin      = "admin"
	SlugDoctor     = "doctor"
	SlugAssistant  = "assistant"
)

// Role is a named capability bucket, either system-fixed or tenant-custom.
type Role struct {
	TenantID  *uuid.UUID
	Name      string
	Slug      string
	System    bool
	CreatedAt time.Time
}

// SystemRoles returns the fixed roles selectable within any tenant. The
// platform-level superadmin is deliberately absent: it is never assignable
// through tenant administration.
func SystemRoles() []Role {
	return []Role{
		{Name: "Administrator", Slug: SlugAdmin, System: true},
		{Name: "Doctor", Slug: SlugDoctor, System: true},
		{Name: "Assistant", Slug: SlugAssistant, System: true},
	}
}

// IsSystemSlug reports whether slug names a system role.
func IsSystemSlug(slug string) bool {
	switch slug {
	case SlugSuperadmin, SlugAdmin, SlugDoctor, SlugAssistant:
		return true
	}
	return false
}
