package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/shared"
)

type mockRepository struct {
	users    map[string]*User
	sessions map[string]uuid.UUID
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:    make(map[string]*User),
		sessions: make(map[string]uuid.UUID),
	}
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepository) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = userID
	return nil
}

func (m *mockRepository) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func seedUser(t *testing.T, repo *mockRepository, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{ID: uuid.New(), Email: email, PasswordHash: string(hash), IsActive: active}
	repo.users[email] = user
	return user
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockRepository()
	seeded := seedUser(t, repo, "dr@clinic.example", "correct horse", true)
	service := NewService(repo)

	user, err := service.Authenticate(context.Background(), "dr@clinic.example", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockRepository()
	seedUser(t, repo, "dr@clinic.example", "correct horse", true)
	service := NewService(repo)

	_, err := service.Authenticate(context.Background(), "dr@clinic.example", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	service := NewService(newMockRepository())

	_, err := service.Authenticate(context.Background(), "nobody@clinic.example", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newMockRepository()
	seedUser(t, repo, "dr@clinic.example", "correct horse", false)
	service := NewService(repo)

	_, err := service.Authenticate(context.Background(), "dr@clinic.example", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(t, repo, "dr@clinic.example", "correct horse", true)
	service := NewService(repo)

	require.NoError(t, service.RegisterSession(context.Background(), "sess-1", user.ID, time.Now().Add(time.Hour), "10.0.0.1", "test-agent"))
	assert.Contains(t, repo.sessions, "sess-1")

	require.NoError(t, service.RemoveSession(context.Background(), "sess-1"))
	assert.NotContains(t, repo.sessions, "sess-1")
}
