package grants

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// ModuleValidator rejects module names outside the application's fixed set.
// Supplied by the access package at wiring time so this package does not
// depend on the decision engine.
type ModuleValidator func(raw string) bool

// Handler wires HTTP endpoints for permission grant administration.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	validModule ModuleValidator
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validModule ModuleValidator) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), validModule: validModule}
}

// MountRoutes registers grant routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listGrants)
	r.Put("/", h.upsertGrant)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok || !principal.HasTenant() {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	rows, err := h.service.ListForTenant(r.Context(), *principal.TenantID)
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": rows})
}

type upsertGrantRequest struct {
	Role    string  `json:"role" validate:"required,min=2,max=80"`
	Module  string  `json:"module" validate:"required"`
	Actions Actions `json:"actions"`
}

func (h *Handler) upsertGrant(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok || !principal.HasTenant() {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req upsertGrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role and module are required")
		return
	}
	if h.validModule != nil && !h.validModule(req.Module) {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Module", "module is not access-controlled")
		return
	}
	grant, err := h.service.Upsert(r.Context(), principal.ID.String(), *principal.TenantID, req.Role, req.Module, req.Actions)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		h.logger.Error("upsert grant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grant)
}
