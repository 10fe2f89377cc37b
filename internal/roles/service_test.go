package roles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/shared"
)

type mockRepository struct {
	custom     map[uuid.UUID]map[string]Role
	references map[string]int

	listError   error
	insertError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		custom:     make(map[uuid.UUID]map[string]Role),
		references: make(map[string]int),
	}
}

func (m *mockRepository) ListCustom(ctx context.Context, tenantID uuid.UUID) ([]Role, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var out []Role
	for _, role := range m.custom[tenantID] {
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepository) Insert(ctx context.Context, tenantID uuid.UUID, name, slug string) (Role, error) {
	if m.insertError != nil {
		return Role{}, m.insertError
	}
	if m.custom[tenantID] == nil {
		m.custom[tenantID] = make(map[string]Role)
	}
	if _, exists := m.custom[tenantID][slug]; exists {
		return Role{}, ErrSlugTaken
	}
	role := Role{TenantID: &tenantID, Name: name, Slug: slug}
	m.custom[tenantID][slug] = role
	return role, nil
}

func (m *mockRepository) Delete(ctx context.Context, tenantID uuid.UUID, slug string) error {
	if _, exists := m.custom[tenantID][slug]; !exists {
		return shared.ErrNotFound
	}
	delete(m.custom[tenantID], slug)
	return nil
}

func (m *mockRepository) CountReferences(ctx context.Context, tenantID uuid.UUID, slug string) (int, error) {
	return m.references[slug], nil
}

func TestListUnionsSystemAndCustomRoles(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)
	tenantID := uuid.New()

	_, err := service.Create(context.Background(), "actor", tenantID, "Head Nurse")
	require.NoError(t, err)

	list, err := service.List(context.Background(), tenantID)
	require.NoError(t, err)

	slugs := make(map[string]bool, len(list))
	for _, role := range list {
		slugs[role.Slug] = true
	}
	assert.True(t, slugs[SlugAdmin])
	assert.True(t, slugs[SlugDoctor])
	assert.True(t, slugs[SlugAssistant])
	assert.True(t, slugs["head_nurse"])
	assert.False(t, slugs[SlugSuperadmin], "superadmin is never tenant-assignable")
}

func TestCreateDerivesSlug(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)
	tenantID := uuid.New()

	role, err := service.Create(context.Background(), "actor", tenantID, "  Enfermeiro Chefe ")
	require.NoError(t, err)
	assert.Equal(t, "enfermeiro_chefe", role.Slug)
	assert.Equal(t, "Enfermeiro Chefe", role.Name)
}

func TestCreateRejectsSlugCollision(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)
	tenantID := uuid.New()

	_, err := service.Create(context.Background(), "actor", tenantID, "Enfermeiro")
	require.NoError(t, err)

	// Different display name, same normalized slug.
	_, err = service.Create(context.Background(), "actor", tenantID, "ENFERMEIRO")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateRejectsSystemSlugCollision(t *testing.T) {
	service := NewService(newMockRepository(), nil, nil)

	_, err := service.Create(context.Background(), "actor", uuid.New(), "Doctor")
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = service.Create(context.Background(), "actor", uuid.New(), "ADMIN")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateRejectsUnusableName(t *testing.T) {
	service := NewService(newMockRepository(), nil, nil)

	_, err := service.Create(context.Background(), "actor", uuid.New(), "!!!")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateScopesSlugPerTenant(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	_, err := service.Create(context.Background(), "actor", uuid.New(), "Head Nurse")
	require.NoError(t, err)
	_, err = service.Create(context.Background(), "actor", uuid.New(), "Head Nurse")
	assert.NoError(t, err, "same slug in a different tenant must not collide")
}

func TestDeleteRejectsSystemRole(t *testing.T) {
	service := NewService(newMockRepository(), nil, nil)

	err := service.Delete(context.Background(), "actor", uuid.New(), SlugDoctor)
	assert.ErrorIs(t, err, ErrSystemRole)
}

func TestDeleteRejectsRoleInUse(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)
	tenantID := uuid.New()

	_, err := service.Create(context.Background(), "actor", tenantID, "Head Nurse")
	require.NoError(t, err)
	repo.references["head_nurse"] = 3

	err = service.Delete(context.Background(), "actor", tenantID, "head_nurse")
	assert.ErrorIs(t, err, ErrRoleInUse)

	list, err := service.List(context.Background(), tenantID)
	require.NoError(t, err)
	found := false
	for _, role := range list {
		if role.Slug == "head_nurse" {
			found = true
		}
	}
	assert.True(t, found, "rejected delete must leave the role in place")
}

func TestDeleteRemovesUnreferencedCustomRole(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, nil, nil)
	tenantID := uuid.New()

	_, err := service.Create(context.Background(), "actor", tenantID, "Head Nurse")
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), "actor", tenantID, "head_nurse"))

	list, err := service.List(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, list, len(SystemRoles()))
}
