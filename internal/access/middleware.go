package access

import (
	"log/slog"
	"net/http"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/shared"
)

// Middleware wires access-control enforcement for HTTP handlers.
type Middleware struct {
	Resolver *identity.Resolver
	Registry *Registry
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Require ensures the current principal may perform action on module before
// the wrapped handler runs. Anonymous requests get 401; everything else that
// is not an explicit allow — missing profile, loading, failed fetch, absent
// grant — fails closed with 403.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			res := m.Resolver.ResolveCurrent(r.Context(), sess)
			if res.State == identity.StateAnonymous {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			provider := m.Registry.For(sess.ID)
			if err := provider.Ensure(r.Context(), res.Principal); err != nil {
				if m.Logger != nil {
					m.Logger.Error("ensure access provider", slog.Any("error", err))
				}
				// Fail closed: a broken permission subsystem restricts, it
				// never crashes and never grants.
			}

			allowed := provider.Can(module, action)
			if m.Metrics != nil {
				m.Metrics.RecordDecision(string(module), string(action), allowed)
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := identity.ContextWithPrincipal(r.Context(), res.Principal)
			ctx = ContextWithProvider(ctx, provider)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate resolves the principal and binds its provider without
// requiring any capability. Used by routes like /me/access that any signed-in
// user may call.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		res := m.Resolver.ResolveCurrent(r.Context(), sess)
		if res.State == identity.StateAnonymous {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		provider := m.Registry.For(sess.ID)
		provider.Bind(r.Context(), res.Principal)

		ctx := identity.ContextWithPrincipal(r.Context(), res.Principal)
		ctx = ContextWithProvider(ctx, provider)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
