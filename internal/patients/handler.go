package patients

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler wires HTTP endpoints for patient records. Each route is mounted
// behind a per-action permission check, so by the time a request lands here
// the decision has already been made.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type patientRequest struct {
	FullName  string `json:"full_name" validate:"required,min=2,max=160"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Notes     string `json:"notes" validate:"omitempty,max=4000"`
}

type patientResponse struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	BirthDate *string `json:"birth_date"`
	Phone     string  `json:"phone"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toResponse(p *Patient) patientResponse {
	out := patientResponse{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		Phone:     p.Phone,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	if p.BirthDate != nil {
		bd := p.BirthDate.Format("2006-01-02")
		out.BirthDate = &bd
	}
	return out
}

// List handles GET /patients.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filter := ListFilter{
		Search:  r.URL.Query().Get("q"),
		Page:    page,
		PerPage: perPage,
	}
	list, pagination, err := h.service.List(r.Context(), *principal.TenantID, filter)
	if err != nil {
		h.logger.Error("list patients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]patientResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"patients": out, "pagination": pagination})
}

// Get handles GET /patients/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.Get(r.Context(), *principal.TenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get patient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

// Create handles POST /patients.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	req, birthDate, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), principal.ID.String(), *principal.TenantID, req.FullName, req.Phone, req.Notes, birthDate)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		h.logger.Error("create patient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

// Update handles PUT /patients/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	req, birthDate, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), principal.ID.String(), *principal.TenantID, id, req.FullName, req.Phone, req.Notes, birthDate)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			httpx.RespondError(w, httpx.ErrValidation)
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("update patient", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

// Delete handles DELETE /patients/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenantPrincipal(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Delete(r.Context(), principal.ID.String(), *principal.TenantID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("delete patient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (patientRequest, *time.Time, bool) {
	var req patientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return req, nil, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "full_name is required; birth_date must be YYYY-MM-DD")
		return req, nil, false
	}
	var birthDate *time.Time
	if req.BirthDate != "" {
		bd, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return req, nil, false
		}
		birthDate = &bd
	}
	return req, birthDate, true
}

func tenantPrincipal(r *http.Request) (identity.Principal, bool) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok || !principal.HasTenant() {
		return identity.Principal{}, false
	}
	return principal, true
}
