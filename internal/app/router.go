package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/grants"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/patients"
	"github.com/clinicore/clinicore/internal/roles"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/team"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler     *auth.Handler
	AccessHandler   *access.Handler
	TeamHandler     *team.Handler
	RolesHandler    *roles.Handler
	GrantsHandler   *grants.Handler
	PatientsHandler *patients.Handler

	Guard   access.Middleware
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Clinicore defaults. All tenant
// surfaces sit behind the access middleware; the permission check happens
// before any handler code runs.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/me", params.AccessHandler.MountRoutes)

	r.Route("/team", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			params.TeamHandler.MountRoutes(r,
				params.Guard.Require(access.ModuleTeam, access.ActionView),
				params.Guard.Require(access.ModuleTeam, access.ActionEdit),
			)
		})
		r.Route("/invites", func(r chi.Router) {
			params.TeamHandler.MountInviteRoutes(r,
				params.Guard.Require(access.ModuleTeam, access.ActionEdit),
			)
		})
		r.Route("/roles", func(r chi.Router) {
			r.Use(params.Guard.Require(access.ModuleTeam, access.ActionEdit))
			params.RolesHandler.MountRoutes(r)
		})
		r.Route("/permissions", func(r chi.Router) {
			r.Use(params.Guard.Require(access.ModuleTeam, access.ActionEdit))
			params.GrantsHandler.MountRoutes(r)
		})
	})

	r.Route("/patients", func(r chi.Router) {
		view := params.Guard.Require(access.ModulePatients, access.ActionView)
		create := params.Guard.Require(access.ModulePatients, access.ActionCreate)
		edit := params.Guard.Require(access.ModulePatients, access.ActionEdit)
		del := params.Guard.Require(access.ModulePatients, access.ActionDelete)

		r.With(view).Get("/", params.PatientsHandler.List)
		r.With(view).Get("/{id}", params.PatientsHandler.Get)
		r.With(create).Post("/", params.PatientsHandler.Create)
		r.With(edit).Put("/{id}", params.PatientsHandler.Update)
		r.With(del).Delete("/{id}", params.PatientsHandler.Delete)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
