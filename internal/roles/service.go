package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/shared"
)

var (
	// ErrSlugTaken indicates the derived slug already exists in the tenant.
	ErrSlugTaken = errors.New("roles: slug already exists for tenant")
	// ErrRoleInUse indicates grants or members still reference the role.
	ErrRoleInUse = errors.New("roles: role is still referenced")
	// ErrSystemRole indicates an attempt to modify a built-in role.
	ErrSystemRole = errors.New("roles: system roles cannot be modified")
	// ErrInvalidName indicates a display name that produces no usable slug.
	ErrInvalidName = errors.New("roles: role name required")
)

// Service handles role registry business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns the fixed system roles unioned with the tenant's custom roles.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	custom, err := s.repo.ListCustom(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := SystemRoles()
	out = append(out, custom...)
	return out, nil
}

// Create derives a slug from displayName and persists the custom role. A name
// that normalizes to an existing slug fails with ErrSlugTaken rather than
// overwriting the existing role.
func (s *Service) Create(ctx context.Context, actorID string, tenantID uuid.UUID, displayName string) (Role, error) {
	displayName = strings.TrimSpace(displayName)
	slug := Slugify(displayName)
	if slug == "" {
		return Role{}, ErrInvalidName
	}
	if IsSystemSlug(slug) {
		return Role{}, ErrSlugTaken
	}
	role, err := s.repo.Insert(ctx, tenantID, displayName, slug)
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.create", slug, map[string]any{"tenant_id": tenantID.String(), "name": displayName})
	return role, nil
}

// Delete removes a custom role. Deletion is rejected while any grant row or
// team member still references the slug, so grants can never dangle.
func (s *Service) Delete(ctx context.Context, actorID string, tenantID uuid.UUID, slug string) error {
	if IsSystemSlug(slug) {
		return ErrSystemRole
	}
	refs, err := s.repo.CountReferences(ctx, tenantID, slug)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrRoleInUse
	}
	if err := s.repo.Delete(ctx, tenantID, slug); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.delete", slug, map[string]any{"tenant_id": tenantID.String()})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "role", EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit role mutation", slog.Any("error", err))
	}
}
