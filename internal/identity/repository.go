package identity

import (
	"context"

	"github.com/google/uuid"
)

// ProfileRepository defines persistence operations for user profiles.
type ProfileRepository interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateRole(ctx context.Context, tenantID, userID uuid.UUID, roleSlug string) error
}
