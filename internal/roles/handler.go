package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler wires HTTP endpoints for the role registry. Routes are mounted
// behind the access middleware, so every request already carries a resolved
// principal with a tenant.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Post("/", h.createRole)
	r.Delete("/{slug}", h.deleteRole)
}

type roleResponse struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	System bool   `json:"system"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	principal, tenantOK := tenantPrincipal(r)
	if !tenantOK {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	list, err := h.service.List(r.Context(), *principal.TenantID)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, roleResponse{Name: role.Name, Slug: role.Slug, System: role.System})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

type createRoleRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	principal, tenantOK := tenantPrincipal(r)
	if !tenantOK {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role name must be 2-80 characters")
		return
	}
	role, err := h.service.Create(r.Context(), principal.ID.String(), *principal.TenantID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlugTaken):
			httpx.Problem(w, http.StatusConflict, "Duplicate", "a role with this name already exists")
		case errors.Is(err, ErrInvalidName):
			httpx.RespondError(w, httpx.ErrValidation)
		default:
			h.logger.Error("create role", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{Name: role.Name, Slug: role.Slug})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	principal, tenantOK := tenantPrincipal(r)
	if !tenantOK {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	slug := chi.URLParam(r, "slug")
	err := h.service.Delete(r.Context(), principal.ID.String(), *principal.TenantID, slug)
	if err != nil {
		switch {
		case errors.Is(err, ErrSystemRole):
			httpx.Problem(w, http.StatusConflict, "System Role", "built-in roles cannot be deleted")
		case errors.Is(err, ErrRoleInUse):
			httpx.Problem(w, http.StatusConflict, "Role In Use", "reassign members and remove grants before deleting this role")
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("delete role", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": slug})
}

func tenantPrincipal(r *http.Request) (identity.Principal, bool) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok || !principal.HasTenant() {
		return identity.Principal{}, false
	}
	return principal, true
}
