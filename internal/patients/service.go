package patients

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/shared"
)

// ErrInvalidName indicates an empty patient name.
var ErrInvalidName = errors.New("patients: full name required")

// Service handles patient record business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns a page of patients with pagination metadata.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Patient, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Get fetches a single patient.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Patient, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// Create persists a new patient record.
func (s *Service) Create(ctx context.Context, actorID string, tenantID uuid.UUID, fullName, phone, notes string, birthDate *time.Time) (*Patient, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrInvalidName
	}
	p := &Patient{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FullName:  fullName,
		BirthDate: birthDate,
		Phone:     strings.TrimSpace(phone),
		Notes:     notes,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "patient.create", p.ID.String(), tenantID)
	return p, nil
}

// Update rewrites a patient's editable fields.
func (s *Service) Update(ctx context.Context, actorID string, tenantID, id uuid.UUID, fullName, phone, notes string, birthDate *time.Time) (*Patient, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrInvalidName
	}
	p, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	p.FullName = fullName
	p.Phone = strings.TrimSpace(phone)
	p.Notes = notes
	p.BirthDate = birthDate
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "patient.update", p.ID.String(), tenantID)
	return p, nil
}

// Delete removes a patient record.
func (s *Service) Delete(ctx context.Context, actorID string, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "patient.delete", id.String(), tenantID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, tenantID uuid.UUID) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{ActorID: actorID, Action: action, Entity: "patient", EntityID: entityID, Meta: map[string]any{"tenant_id": tenantID.String()}}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit patient mutation", slog.Any("error", err))
	}
}
