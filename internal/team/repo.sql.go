package team

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListMembers returns every profile affiliated with the tenant, joined with
// the account email.
func (r *PGRepository) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, p.display_name, u.email, p.role_slug, p.created_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.tenant_id = $1
		ORDER BY p.display_name ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Email, &m.RoleSlug, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMemberRole reassigns a member's role within the tenant. The tenant
// filter keeps one tenant's admin from touching another tenant's members.
func (r *PGRepository) UpdateMemberRole(ctx context.Context, tenantID, userID uuid.UUID, roleSlug string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role_slug = $1, updated_at = NOW() WHERE tenant_id = $2 AND user_id = $3`,
		roleSlug, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateInvite persists a pending invite.
func (r *PGRepository) CreateInvite(ctx context.Context, invite Invite) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invites (id, tenant_id, email, role_slug, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		invite.ID, invite.TenantID, invite.Email, invite.RoleSlug, invite.Token, invite.ExpiresAt.UTC())
	return err
}

// ListInvites returns pending invites for the tenant, newest first.
func (r *PGRepository) ListInvites(ctx context.Context, tenantID uuid.UUID) ([]Invite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, email, role_slug, token, expires_at, created_at, accepted_at
		FROM invites
		WHERE tenant_id = $1 AND accepted_at IS NULL
		ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []Invite
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.Email, &inv.RoleSlug, &inv.Token, &inv.ExpiresAt, &inv.CreatedAt, &inv.AcceptedAt); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

var _ RepositoryPort = (*PGRepository)(nil)
