package team

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines persistence operations for team management.
type RepositoryPort interface {
	ListMembers(ctx context.Context, tenantID uuid.UUID) ([]Member, error)
	UpdateMemberRole(ctx context.Context, tenantID, userID uuid.UUID, roleSlug string) error
	CreateInvite(ctx context.Context, invite Invite) error
	ListInvites(ctx context.Context, tenantID uuid.UUID) ([]Invite, error)
}
