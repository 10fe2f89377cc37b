package team

import (
	"time"

	"github.com/google/uuid"
)

// Member is a user affiliated with a tenant, as shown on the team page.
type Member struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	RoleSlug    string
	JoinedAt    time.Time
}

// Invite is a pending offer to join a tenant under a given role.
type Invite struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Email      string
	RoleSlug   string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// Expired reports whether the invite window has passed.
func (i Invite) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}
