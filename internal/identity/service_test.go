package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/shared"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*Profile
	err      error
}

func (f *fakeProfileRepo) FindProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
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

func sessionWithUser(t *testing.T, userID string) *shared.Session {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := shared.NewSessionManager(client, "clinicore_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(req.Context(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return sess
}

func TestResolveCurrentNilSessionIsAnonymous(t *testing.T) {
	resolver := NewResolver(&fakeProfileRepo{}, nil)

	res := resolver.ResolveCurrent(context.Background(), nil)
	assert.Equal(t, StateAnonymous, res.State)
	assert.False(t, res.Resolved())
}

func TestResolveCurrentEmptyUserIsAnonymous(t *testing.T) {
	resolver := NewResolver(&fakeProfileRepo{}, nil)

	res := resolver.ResolveCurrent(context.Background(), sessionWithUser(t, ""))
	assert.Equal(t, StateAnonymous, res.State)
}

func TestResolveCurrentMalformedUserIDIsAnonymous(t *testing.T) {
	resolver := NewResolver(&fakeProfileRepo{}, nil)

	res := resolver.ResolveCurrent(context.Background(), sessionWithUser(t, "not-a-uuid"))
	assert.Equal(t, StateAnonymous, res.State)
}

func TestResolveCurrentMissingProfile(t *testing.T) {
	resolver := NewResolver(&fakeProfileRepo{}, nil)
	userID := uuid.New()

	res := resolver.ResolveCurrent(context.Background(), sessionWithUser(t, userID.String()))

	assert.Equal(t, StateNoProfile, res.State)
	assert.Equal(t, userID, res.Principal.ID)
	assert.False(t, res.Principal.HasTenant())
	assert.Empty(t, res.Principal.RoleSlug)
}

func TestResolveCurrentFetchErrorYieldsNoProfile(t *testing.T) {
	resolver := NewResolver(&fakeProfileRepo{err: assert.AnError}, nil)
	userID := uuid.New()

	res := resolver.ResolveCurrent(context.Background(), sessionWithUser(t, userID.String()))

	// A broken profile fetch restricts, it never crashes and never grants.
	assert.Equal(t, StateNoProfile, res.State)
	assert.False(t, res.Principal.HasTenant())
}

func TestResolveCurrentResolved(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]*Profile{
		userID: {UserID: userID, TenantID: &tenantID, RoleSlug: "doctor", DisplayName: "Dr. Silva"},
	}}
	resolver := NewResolver(repo, nil)

	res := resolver.ResolveCurrent(context.Background(), sessionWithUser(t, userID.String()))

	require.Equal(t, StateResolved, res.State)
	assert.Equal(t, userID, res.Principal.ID)
	require.NotNil(t, res.Principal.TenantID)
	assert.Equal(t, tenantID, *res.Principal.TenantID)
	assert.Equal(t, "doctor", res.Principal.RoleSlug)
	assert.Equal(t, "Dr. Silva", res.Principal.DisplayName)
}
