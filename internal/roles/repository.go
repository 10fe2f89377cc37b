package roles

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines persistence operations for tenant-custom roles.
type RepositoryPort interface {
	ListCustom(ctx context.Context, tenantID uuid.UUID) ([]Role, error)
	Insert(ctx context.Context, tenantID uuid.UUID, name, slug string) (Role, error)
	Delete(ctx context.Context, tenantID uuid.UUID, slug string) error
	// CountReferences reports how many grant rows and team members still
	// point at the slug within the tenant.
	CountReferences(ctx context.Context, tenantID uuid.UUID, slug string) (int, error)
}
