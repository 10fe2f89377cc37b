package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler exposes the consumer contract over HTTP: the per-module decision
// map, the loading flag, and explicit permission refresh.
type Handler struct {
	logger     *slog.Logger
	middleware Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, middleware Middleware) *Handler {
	return &Handler{logger: logger, middleware: middleware}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.Authenticate)
		r.Get("/access", h.showAccess)
		r.Post("/access/refresh", h.refreshAccess)
	})
}

type accessResponse struct {
	Loading bool                       `json:"loading"`
	Failed  bool                       `json:"failed"`
	Access  map[Module]map[Action]bool `json:"access"`
}

func (h *Handler) showAccess(w http.ResponseWriter, r *http.Request) {
	provider := ProviderFromContext(r.Context())
	if provider == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	decisions, loading := provider.Decisions()
	httpx.JSON(w, http.StatusOK, accessResponse{
		Loading: loading,
		Failed:  provider.State() == StateFailed,
		Access:  decisions,
	})
}

func (h *Handler) refreshAccess(w http.ResponseWriter, r *http.Request) {
	provider := ProviderFromContext(r.Context())
	if provider == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := provider.Refresh(r.Context()); err != nil {
		h.logger.Error("refresh permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Refresh Failed", "permission refresh did not complete")
		return
	}
	decisions, loading := provider.Decisions()
	httpx.JSON(w, http.StatusOK, accessResponse{
		Loading: loading,
		Failed:  provider.State() == StateFailed,
		Access:  decisions,
	})
}
