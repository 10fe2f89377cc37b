package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/shared"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*identity.Profile
	err      error
}

func (f *fakeProfileRepo) FindProfile(ctx context.Context, userID uuid.UUID) (*identity.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) UpdateRole(ctx context.Context, tenantID, userID uuid.UUID, roleSlug string) error {
	return nil
}

func newTestSession(t *testing.T, userID string) *shared.Session {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := shared.NewSessionManager(client, "clinicore_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(req.Context(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != "" {
		sess.SetUser(userID)
	}
	return sess
}

func guardedRequest(t *testing.T, mw Middleware, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw.Require(ModulePatients, ActionView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.PrincipalFromContext(r.Context()); !ok {
			t.Error("principal missing from handler context")
		}
		if ProviderFromContext(r.Context()) == nil {
			t.Error("provider missing from handler context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireRejectsAnonymous(t *testing.T) {
	repo := &fakeProfileRepo{}
	mw := Middleware{
		Resolver: identity.NewResolver(repo, nil),
		Registry: NewRegistry(&fakeSource{}, nil, nil),
	}

	rec := guardedRequest(t, mw, newTestSession(t, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAllowsGrantedRole(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]*identity.Profile{
		userID: {UserID: userID, TenantID: &tenantID, RoleSlug: "doctor"},
	}}
	src := &fakeSource{}
	src.setRows(tenantID, []Grant{viewGrant(tenantID, "doctor", "patients")})
	mw := Middleware{
		Resolver: identity.NewResolver(repo, nil),
		Registry: NewRegistry(src, nil, nil),
	}

	rec := guardedRequest(t, mw, newTestSession(t, userID.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireDeniesUngrantedRole(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]*identity.Profile{
		userID: {UserID: userID, TenantID: &tenantID, RoleSlug: "assistant"},
	}}
	mw := Middleware{
		Resolver: identity.NewResolver(repo, nil),
		Registry: NewRegistry(&fakeSource{}, nil, nil),
	}

	rec := guardedRequest(t, mw, newTestSession(t, userID.String()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireDeniesWhenProfileMissing(t *testing.T) {
	// Session exists but the profile row is gone: not an error page, not an
	// admin fallback, just a deny.
	mw := Middleware{
		Resolver: identity.NewResolver(&fakeProfileRepo{}, nil),
		Registry: NewRegistry(&fakeSource{}, nil, nil),
	}

	rec := guardedRequest(t, mw, newTestSession(t, uuid.NewString()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireDeniesWhenGrantFetchFails(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]*identity.Profile{
		userID: {UserID: userID, TenantID: &tenantID, RoleSlug: "doctor"},
	}}
	src := &fakeSource{}
	src.setErr(errors.New("pg down"))
	mw := Middleware{
		Resolver: identity.NewResolver(repo, nil),
		Registry: NewRegistry(src, nil, nil),
	}

	rec := guardedRequest(t, mw, newTestSession(t, userID.String()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRegistryInvalidateDropsProvider(t *testing.T) {
	tenantID := uuid.New()
	src := &fakeSource{}
	src.setRows(tenantID, []Grant{viewGrant(tenantID, "doctor", "patients")})
	registry := NewRegistry(src, nil, nil)

	p := registry.For("sess-1")
	if err := p.Ensure(context.Background(), doctorFor(tenantID)); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !p.Can(ModulePatients, ActionView) {
		t.Fatal("expected allow before invalidation")
	}

	registry.Invalidate(context.Background(), "sess-1")

	if p.State() != StateUninitialized {
		t.Fatalf("expected dropped provider to be reset, state=%d", p.State())
	}
	if registry.For("sess-1") == p {
		t.Fatal("expected a fresh provider after invalidation")
	}
}
