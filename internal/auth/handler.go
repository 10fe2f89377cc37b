package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// SessionInvalidator drops any cached access state bound to a session so the
// next request resolves permissions from scratch. Implemented by the access
// provider registry.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, sessionID string)
}

// Handler wires HTTP endpoints for authentication.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	resolver    *identity.Resolver
	sessions    *shared.SessionManager
	csrf        *shared.CSRFManager
	invalidator SessionInvalidator
	audit       *shared.AuditLogger
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(
	logger *slog.Logger,
	service *Service,
	resolver *identity.Resolver,
	sessions *shared.SessionManager,
	csrf *shared.CSRFManager,
	invalidator SessionInvalidator,
	audit *shared.AuditLogger,
) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		resolver:    resolver,
		sessions:    sessions,
		csrf:        csrf,
		invalidator: invalidator,
		audit:       audit,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.issueCSRF)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

// issueCSRF hands the client a token to send back on state-changing calls.
func (h *Handler) issueCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	TenantID    *string `json:"tenant_id"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	sess.SetUser(user.ID.String())

	expiresAt := time.Now().Add(h.sessions.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.invalidator.Invalidate(r.Context(), sess.ID)

	res := h.resolver.ResolveCurrent(r.Context(), sess)
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  user.ID.String(),
		Action:   "auth.login",
		Entity:   "user",
		EntityID: user.ID.String(),
	}); err != nil {
		h.logger.Warn("audit login", slog.Any("error", err))
	}

	out := loginResponse{UserID: user.ID.String()}
	if res.Resolved() {
		out.DisplayName = res.Principal.DisplayName
		out.Role = res.Principal.RoleSlug
		if res.Principal.TenantID != nil {
			tid := res.Principal.TenantID.String()
			out.TenantID = &tid
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if userID := sess.User(); userID != "" {
		if err := h.audit.Record(r.Context(), shared.AuditLog{ActorID: userID, Action: "auth.logout", Entity: "user", EntityID: userID}); err != nil {
			h.logger.Warn("audit logout", slog.Any("error", err))
		}
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	h.invalidator.Invalidate(r.Context(), sess.ID)
	h.sessions.Destroy(sess)
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
