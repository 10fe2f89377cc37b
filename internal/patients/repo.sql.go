package patients

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

// List returns a page of patients plus the total count.
func (r *PGRepository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Patient, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	where := `WHERE tenant_id = $1`
	args := []any{tenantID}
	limitClause := ` LIMIT $2 OFFSET $3`
	if q := strings.TrimSpace(filter.Search); q != "" {
		where += ` AND (full_name ILIKE $2 OR phone ILIKE $2)`
		args = append(args, "%"+q+"%")
		limitClause = ` LIMIT $3 OFFSET $4`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, offset)
	query := `
		SELECT id, tenant_id, full_name, birth_date, phone, notes, created_at, updated_at
		FROM patients ` + where + `
		ORDER BY full_name ASC` + limitClause
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.TenantID, &p.FullName, &p.BirthDate, &p.Phone, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// FindByID fetches a single patient within the tenant.
func (r *PGRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, full_name, birth_date, phone, notes, created_at, updated_at
		FROM patients WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.FullName, &p.BirthDate, &p.Phone, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Insert persists a new patient and fills the generated fields.
func (r *PGRepository) Insert(ctx context.Context, p *Patient) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, tenant_id, full_name, birth_date, phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.FullName, p.BirthDate, p.Phone, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// Update rewrites the editable fields of a patient.
func (r *PGRepository) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET full_name = $1, birth_date = $2, phone = $3, notes = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6`,
		p.FullName, p.BirthDate, p.Phone, p.Notes, p.TenantID, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a patient record.
func (r *PGRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*PGRepository)(nil)
