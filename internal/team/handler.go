package team

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler wires HTTP endpoints for team management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// Guard is a per-route permission middleware supplied by the access layer.
type Guard func(http.Handler) http.Handler

// MountRoutes registers member routes. Listing needs view capability; role
// reassignment needs edit.
func (h *Handler) MountRoutes(r chi.Router, view, edit Guard) {
	r.With(view).Get("/", h.listMembers)
	r.With(edit).Put("/{userID}/role", h.reassignRole)
}

// MountInviteRoutes registers invite routes behind the edit capability.
func (h *Handler) MountInviteRoutes(r chi.Router, edit Guard) {
	r.With(edit).Get("/", h.listInvites)
	r.With(edit).Post("/", h.createInvite)
}

type memberResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	members, err := h.service.Members(r.Context(), *principal.TenantID)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:      m.UserID.String(),
			DisplayName: m.DisplayName,
			Email:       m.Email,
			Role:        m.RoleSlug,
			JoinedAt:    m.JoinedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

type reassignRoleRequest struct {
	Role string `json:"role" validate:"required,min=2,max=80"`
}

func (h *Handler) reassignRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req reassignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role is required")
		return
	}

	err = h.service.ReassignRole(r.Context(), principal.ID.String(), *principal.TenantID, userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRole):
			httpx.Problem(w, http.StatusBadRequest, "Unknown Role", "role does not exist in this tenant")
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("reassign role", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"user_id": userID.String(), "role": req.Role})
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,min=2,max=80"`
}

type inviteResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	invites, err := h.service.Invites(r.Context(), *principal.TenantID)
	if err != nil {
		h.logger.Error("list invites", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, inviteResponse{
			ID:        inv.ID.String(),
			Email:     inv.Email,
			Role:      inv.RoleSlug,
			ExpiresAt: inv.ExpiresAt,
			CreatedAt: inv.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invites": out})
}

func (h *Handler) createInvite(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req createInviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and role are required")
		return
	}

	invite, err := h.service.Invite(r.Context(), principal.ID.String(), *principal.TenantID, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.Problem(w, http.StatusBadRequest, "Unknown Role", "role does not exist in this tenant")
			return
		}
		h.logger.Error("create invite", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inviteResponse{
		ID:        invite.ID.String(),
		Email:     invite.Email,
		Role:      invite.RoleSlug,
		ExpiresAt: invite.ExpiresAt,
		CreatedAt: invite.CreatedAt,
	})
}

func tenantPrincipal(r *http.Request) (identity.Principal, bool) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok || !principal.HasTenant() {
		return identity.Principal{}, false
	}
	return principal, true
}
