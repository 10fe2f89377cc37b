package grants

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for permission grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForTenant returns all grant rows for the tenant. A tenant that has
// configured nothing yet yields an empty slice, not an error.
func (r *Repository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tenant_id, role_slug, module, can_view, can_create, can_edit, can_delete, updated_at
		 FROM permission_grants WHERE tenant_id = $1 ORDER BY role_slug, module`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Grant{}
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.TenantID, &g.RoleSlug, &g.Module, &g.Actions.View, &g.Actions.Create, &g.Actions.Edit, &g.Actions.Delete, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes or replaces the single row for the composite key. The
// ON CONFLICT clause makes the write atomic: a concurrent reader observes
// either the fully-old or fully-new row.
func (r *Repository) Upsert(ctx context.Context, tenantID uuid.UUID, roleSlug, module string, actions Actions) (Grant, error) {
	var g Grant
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permission_grants (tenant_id, role_slug, module, can_view, can_create, can_edit, can_delete, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (tenant_id, role_slug, module) DO UPDATE
		 SET can_view = EXCLUDED.can_view, can_create = EXCLUDED.can_create,
		     can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete,
		     updated_at = NOW()
		 RETURNING tenant_id, role_slug, module, can_view, can_create, can_edit, can_delete, updated_at`,
		tenantID, roleSlug, module, actions.View, actions.Create, actions.Edit, actions.Delete,
	).Scan(&g.TenantID, &g.RoleSlug, &g.Module, &g.Actions.View, &g.Actions.Create, &g.Actions.Edit, &g.Actions.Delete, &g.UpdatedAt)
	if err != nil {
		return Grant{}, err
	}
	return g, nil
}

// ListActiveTenants returns tenants that have at least one grant configured.
// Used by the cache warmup job.
func (r *Repository) ListActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM permission_grants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ RepositoryPort = (*Repository)(nil)
