package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/shared"
)

// Resolver establishes who is acting and for which tenant.
type Resolver struct {
	repo   ProfileRepository
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(repo ProfileRepository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// ResolveCurrent reads the active session and loads the matching profile.
// A session without a valid user yields StateAnonymous. A profile that is
// missing or unfetchable yields StateNoProfile: the principal keeps its ID
// but carries no tenant or role, which downstream permission logic treats
// as default-deny, never as a crash and never as admin.
func (r *Resolver) ResolveCurrent(ctx context.Context, sess *shared.Session) Resolution {
	if sess == nil {
		return Resolution{State: StateAnonymous}
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Resolution{State: StateAnonymous}
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("resolve principal: malformed user id", slog.String("value", raw))
		}
		return Resolution{State: StateAnonymous}
	}

	profile, err := r.repo.FindProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && r.logger != nil {
			r.logger.Error("resolve principal: fetch profile", slog.Any("error", err))
		}
		return Resolution{State: StateNoProfile, Principal: Principal{ID: userID}}
	}

	return Resolution{
		State: StateResolved,
		Principal: Principal{
			ID:          profile.UserID,
			TenantID:    profile.TenantID,
			RoleSlug:    profile.RoleSlug,
			DisplayName: profile.DisplayName,
		},
	}
}
