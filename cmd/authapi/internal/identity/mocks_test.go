package identity

import (
	"context"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// mockUserRepository is an in-memory UserRepository.
type mockUserRepository struct {
	users   map[string]*models.User
	updates int
	failGet error
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(_ context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, repository.ErrNotFound)
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (m *mockUserRepository) Update(_ context.Context, user *models.User) error {
	m.updates++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(context.Context, string) error { return nil }

func (m *mockUserRepository) List(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

// mockUserRoleRepository maps user ids to role names.
type mockUserRoleRepository struct {
	roles map[string][]string
}

func (m *mockUserRoleRepository) Assign(context.Context, string, string) error { return nil }
func (m *mockUserRoleRepository) Revoke(context.Context, string, string) error { return nil }

func (m *mockUserRoleRepository) RoleNamesForUser(_ context.Context, userID string) ([]string, error) {
	return m.roles[userID], nil
}

// mockUserClaimRepository maps user ids to stored claims.
type mockUserClaimRepository struct {
	claims map[string][]models.UserClaim
}

func (m *mockUserClaimRepository) Add(_ context.Context, claim *models.UserClaim) error {
	m.claims[claim.UserID] = append(m.claims[claim.UserID], *claim)
	return nil
}

func (m *mockUserClaimRepository) ListByUser(_ context.Context, userID string) ([]models.UserClaim, error) {
	return m.claims[userID], nil
}

func (m *mockUserClaimRepository) DeleteByType(context.Context, string, string) error { return nil }
