package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/shared"
)

const referenceCountQuery = `
	SELECT (SELECT COUNT(*) FROM permission_grants WHERE tenant_id = $1 AND role_slug = $2)
	     + (SELECT COUNT(*) FROM profiles WHERE tenant_id = $1 AND role_slug = $2)`

// Repository provides PostgreSQL backed persistence for custom roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCustom returns the tenant's custom roles ordered by name.
func (r *Repository) ListCustom(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, name, slug, created_at FROM tenant_roles WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.TenantID, &role.Name, &role.Slug, &role.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert persists a custom role. A unique violation on (tenant_id, slug)
// surfaces as ErrSlugTaken.
func (r *Repository) Insert(ctx context.Context, tenantID uuid.UUID, name, slug string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tenant_roles (tenant_id, name, slug, created_at) VALUES ($1, $2, $3, NOW())
		 RETURNING tenant_id, name, slug, created_at`,
		tenantID, name, slug,
	).Scan(&role.TenantID, &role.Name, &role.Slug, &role.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, ErrSlugTaken
		}
		return Role{}, err
	}
	return role, nil
}

// Delete removes a custom role row. The reference check and the delete run
// in one transaction so a grant or profile written after the service's
// pre-check cannot end up pointing at a removed role.
func (r *Repository) Delete(ctx context.Context, tenantID uuid.UUID, slug string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var refs int
		if err := tx.QueryRow(ctx, referenceCountQuery, tenantID, slug).Scan(&refs); err != nil {
			return err
		}
		if refs > 0 {
			return ErrRoleInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tenant_roles WHERE tenant_id = $1 AND slug = $2`, tenantID, slug)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountReferences counts grant rows and profiles still bound to the slug.
func (r *Repository) CountReferences(ctx context.Context, tenantID uuid.UUID, slug string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, referenceCountQuery, tenantID, slug).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

var _ RepositoryPort = (*Repository)(nil)
