package team

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/roles"
	"github.com/clinicore/clinicore/internal/shared"
)

// ErrUnknownRole indicates a role slug that is neither a system role nor a
// custom role of the tenant.
var ErrUnknownRole = errors.New("team: unknown role")

const inviteTTL = 7 * 24 * time.Hour

// RoleCatalog answers which roles exist for a tenant. Satisfied by
// roles.Service.
type RoleCatalog interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]roles.Role, error)
}

// Service handles team management business logic.
type Service struct {
	repo    RepositoryPort
	catalog RoleCatalog
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, catalog RoleCatalog, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit, logger: logger}
}

// Members lists the tenant's members.
func (s *Service) Members(ctx context.Context, tenantID uuid.UUID) ([]Member, error) {
	return s.repo.ListMembers(ctx, tenantID)
}

// ReassignRole moves a member onto a different role. The slug must exist in
// the tenant's role registry. The change takes effect on the member's next
// permission resolution; nothing is revoked mid-request.
func (s *Service) ReassignRole(ctx context.Context, actorID string, tenantID, userID uuid.UUID, roleSlug string) error {
	roleSlug = strings.TrimSpace(roleSlug)
	ok, err := s.roleExists(ctx, tenantID, roleSlug)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownRole
	}
	if err := s.repo.UpdateMemberRole(ctx, tenantID, userID, roleSlug); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "member.role_change", userID.String(), map[string]any{
		"tenant_id": tenantID.String(),
		"role":      roleSlug,
	})
	return nil
}

// Invite creates a pending invite bound to a role. The token doubles as the
// acceptance credential, so it is never logged.
func (s *Service) Invite(ctx context.Context, actorID string, tenantID uuid.UUID, email, roleSlug string) (Invite, error) {
	roleSlug = strings.TrimSpace(roleSlug)
	ok, err := s.roleExists(ctx, tenantID, roleSlug)
	if err != nil {
		return Invite{}, err
	}
	if !ok {
		return Invite{}, ErrUnknownRole
	}

	invite := Invite{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		RoleSlug:  roleSlug,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(inviteTTL),
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return Invite{}, err
	}
	s.recordAudit(ctx, actorID, "member.invite", invite.ID.String(), map[string]any{
		"tenant_id": tenantID.String(),
		"email":     invite.Email,
		"role":      roleSlug,
	})
	return invite, nil
}

// Invites lists the tenant's pending invites.
func (s *Service) Invites(ctx context.Context, tenantID uuid.UUID) ([]Invite, error) {
	return s.repo.ListInvites(ctx, tenantID)
}

func (s *Service) roleExists(ctx context.Context, tenantID uuid.UUID, slug string) (bool, error) {
	if slug == "" {
		return false, nil
	}
	list, err := s.catalog.List(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, role := range list {
		if role.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "member", EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit team mutation", slog.Any("error", err))
	}
}
