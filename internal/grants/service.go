package grants

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/shared"
)

// ErrInvalidKey indicates an upsert with an empty role or module.
var ErrInvalidKey = errors.New("grants: role and module required")

// Service handles permission grant reads and writes for a tenant.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds a Service instance. cache and audit may be nil in tests.
func NewService(repo RepositoryPort, cache *Cache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ListForTenant returns all grants for the tenant, through the cache when
// one is configured.
func (s *Service) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error) {
	if s.cache == nil {
		return s.repo.ListForTenant(ctx, tenantID)
	}
	return s.cache.FetchGrants(ctx, tenantID, func(ctx context.Context) ([]Grant, error) {
		return s.repo.ListForTenant(ctx, tenantID)
	})
}

// Upsert writes or replaces the grant row for (tenant, role, module) and
// invalidates cached grant sets. Write failures propagate to the caller so
// optimistic UI toggles can roll back.
func (s *Service) Upsert(ctx context.Context, actorID string, tenantID uuid.UUID, roleSlug, module string, actions Actions) (Grant, error) {
	roleSlug = strings.TrimSpace(roleSlug)
	module = strings.TrimSpace(module)
	if roleSlug == "" || module == "" {
		return Grant{}, ErrInvalidKey
	}
	grant, err := s.repo.Upsert(ctx, tenantID, roleSlug, module, actions)
	if err != nil {
		return Grant{}, err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
			s.logger.Warn("bump grants cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		auditErr := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "grant.upsert",
			Entity:   "grant",
			EntityID: roleSlug + ":" + module,
			Meta: map[string]any{
				"tenant_id": tenantID.String(),
				"view":      actions.View,
				"create":    actions.Create,
				"edit":      actions.Edit,
				"delete":    actions.Delete,
			},
		})
		if auditErr != nil && s.logger != nil {
			s.logger.Warn("audit grant upsert", slog.Any("error", auditErr))
		}
	}
	return grant, nil
}

// Invalidate bumps the cache version, forcing the next read to hit postgres.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

// WarmTenant primes the cache for a tenant. Used by the warmup job.
func (s *Service) WarmTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.ListForTenant(ctx, tenantID)
	return err
}

// ActiveTenants lists tenants with configured grants.
func (s *Service) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListActiveTenants(ctx)
}
