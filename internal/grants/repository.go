package grants

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines persistence operations for permission grants.
type RepositoryPort interface {
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error)
	Upsert(ctx context.Context, tenantID uuid.UUID, roleSlug, module string, actions Actions) (Grant, error)
	ListActiveTenants(ctx context.Context) ([]uuid.UUID, error)
}
