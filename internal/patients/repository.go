package patients

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows patient listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

// RepositoryPort defines persistence operations for patient records.
type RepositoryPort interface {
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Patient, int, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error)
	Insert(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
