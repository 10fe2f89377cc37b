package grants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	rows map[uuid.UUID]map[string]Grant

	listCalls   int
	upsertError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{rows: make(map[uuid.UUID]map[string]Grant)}
}

func (m *mockRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error) {
	m.listCalls++
	var out []Grant
	for _, g := range m.rows[tenantID] {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockRepository) Upsert(ctx context.Context, tenantID uuid.UUID, roleSlug, module string, actions Actions) (Grant, error) {
	if m.upsertError != nil {
		return Grant{}, m.upsertError
	}
	if m.rows[tenantID] == nil {
		m.rows[tenantID] = make(map[string]Grant)
	}
	g := Grant{TenantID: tenantID, RoleSlug: roleSlug, Module: module, Actions: actions, UpdatedAt: time.Now()}
	m.rows[tenantID][roleSlug+":"+module] = g
	return g, nil
}

func (m *mockRepository) ListActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	return out, nil
}

func TestUpsertRequiresRoleAndModule(t *testing.T) {
	service := NewService(newMockRepository(), nil, nil, nil)

	_, err := service.Upsert(context.Background(), "actor", uuid.New(), "", "patients", Actions{View: true})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = service.Upsert(context.Background(), "actor", uuid.New(), "doctor", "  ", Actions{View: true})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil, nil)
	tenantID := uuid.New()

	_, err := service.Upsert(context.Background(), "actor", tenantID, "doctor", "patients", Actions{View: true})
	require.NoError(t, err)
	_, err = service.Upsert(context.Background(), "actor", tenantID, "doctor", "patients", Actions{View: true, Edit: true})
	require.NoError(t, err)

	rows, err := service.ListForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, rows, 1, "upsert must keep at most one row per (role, module)")
	assert.True(t, rows[0].Actions.View)
	assert.True(t, rows[0].Actions.Edit)
	assert.False(t, rows[0].Actions.Delete)
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil, nil)
	tenantID := uuid.New()
	actions := Actions{View: true, Create: true}

	first, err := service.Upsert(context.Background(), "actor", tenantID, "assistant", "billing", actions)
	require.NoError(t, err)
	second, err := service.Upsert(context.Background(), "actor", tenantID, "assistant", "billing", actions)
	require.NoError(t, err)

	assert.Equal(t, first.Actions, second.Actions)
	rows, err := service.ListForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpsertAllowsAllFalseRow(t *testing.T) {
	// A row with every action false is a valid explicit deny; it is not the
	// same as deleting the row, and it must round-trip.
	repo := newMockRepository()
	service := NewService(repo, nil, nil, nil)
	tenantID := uuid.New()

	_, err := service.Upsert(context.Background(), "actor", tenantID, "assistant", "billing", Actions{})
	require.NoError(t, err)

	rows, err := service.ListForTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Actions{}, rows[0].Actions)
}

func TestUpsertErrorPropagates(t *testing.T) {
	repo := newMockRepository()
	repo.upsertError = assert.AnError
	service := NewService(repo, nil, nil, nil)

	_, err := service.Upsert(context.Background(), "actor", uuid.New(), "doctor", "patients", Actions{View: true})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSetLookup(t *testing.T) {
	tenantID := uuid.New()
	set := NewSet([]Grant{
		{TenantID: tenantID, RoleSlug: "doctor", Module: "patients", Actions: Actions{View: true}},
		{TenantID: tenantID, RoleSlug: "doctor", Module: "billing", Actions: Actions{Edit: true}},
	})

	actions, ok := set.Lookup("doctor", "patients")
	require.True(t, ok)
	assert.True(t, actions.View)

	_, ok = set.Lookup("doctor", "documents")
	assert.False(t, ok)
	_, ok = set.Lookup("assistant", "patients")
	assert.False(t, ok)
	assert.Equal(t, 2, set.Len())
}

func TestWarmTenantPrimesCache(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	_, err := repo.Upsert(context.Background(), tenantID, "doctor", "patients", Actions{View: true})
	require.NoError(t, err)

	service := NewService(repo, nil, nil, nil)
	require.NoError(t, service.WarmTenant(context.Background(), tenantID))

	tenants, err := service.ActiveTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenantID}, tenants)
}
