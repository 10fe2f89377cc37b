package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// PGRepository implements ProfileRepository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindProfile fetches the profile row for a user.
func (r *PGRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var profile Profile
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, tenant_id, role_slug, display_name FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.TenantID, &profile.RoleSlug, &profile.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateRole reassigns the profile's role within its tenant.
func (r *PGRepository) UpdateRole(ctx context.Context, tenantID, userID uuid.UUID, roleSlug string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role_slug = $3, updated_at = NOW() WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID, roleSlug,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ ProfileRepository = (*PGRepository)(nil)
