package grant

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// mockStore is an in-memory identity.Store. Passwords are compared in plain
// text; verifyResult overrides the outcome when set.
type mockStore struct {
	users        map[string]*models.User
	passwords    map[string]string
	roles        map[string][]string
	lockedOut    map[string]bool
	canSignIn    map[string]bool
	verifyResult map[string]identity.SignInResult
	findErr      error
	verifyCalls  int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:        make(map[string]*models.User),
		passwords:    make(map[string]string),
		roles:        make(map[string][]string),
		lockedOut:    make(map[string]bool),
		canSignIn:    make(map[string]bool),
		verifyResult: make(map[string]identity.SignInResult),
	}
}

func (m *mockStore) add(user *models.User, password string, roles ...string) {
	m.users[user.ID] = user
	m.passwords[user.ID] = password
	m.roles[user.ID] = roles
	m.canSignIn[user.ID] = true
}

func (m *mockStore) FindByUsernameOrEmail(_ context.Context, login string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Username == login {
			return u, nil
		}
	}
	for _, u := range m.users {
		if u.Email == login {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockStore) VerifyPassword(_ context.Context, user *models.User, password string) (identity.SignInResult, error) {
	m.verifyCalls++
	if r, ok := m.verifyResult[user.ID]; ok {
		return r, nil
	}
	if m.passwords[user.ID] == password {
		return identity.SignInSucceeded, nil
	}
	return identity.SignInInvalid, nil
}

func (m *mockStore) IsLockedOut(user *models.User) bool {
	return m.lockedOut[user.ID]
}

func (m *mockStore) GetRoles(_ context.Context, user *models.User) ([]string, error) {
	return m.roles[user.ID], nil
}

func (m *mockStore) GetClaims(context.Context, *models.User) ([]identity.StoredClaim, error) {
	return nil, nil
}

func (m *mockStore) CanSignIn(_ context.Context, user *models.User) (bool, error) {
	return m.canSignIn[user.ID], nil
}

type mockProfiles struct {
	patients map[string]*identity.PatientProfile
}

func (m *mockProfiles) GetDoctorProfile(context.Context, string) (*identity.DoctorProfile, error) {
	return nil, identity.ErrProfileNotFound
}

func (m *mockProfiles) GetPatientProfile(_ context.Context, userID string) (*identity.PatientProfile, error) {
	if p, ok := m.patients[userID]; ok {
		return p, nil
	}
	return nil, identity.ErrProfileNotFound
}

type mockClients struct {
	clients map[string]*models.Client
	err     error
}

func (m *mockClients) GetByClientID(_ context.Context, clientID string) (*models.Client, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.clients[clientID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

var signingKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

type fixture struct {
	store      *mockStore
	profiles   *mockProfiles
	clients    *mockClients
	tokens     *token.Service
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	tokens, err := token.NewService(signingKey, "test-kid", nil, token.Options{
		Issuer:          "https://auth.hospital.test",
		Audience:        "hospital_api",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		IDTokenTTL:      20 * time.Minute,
	})
	require.NoError(t, err)

	secret, err := bcrypt.GenerateFromPassword([]byte("secret-secret-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		store:    newMockStore(),
		profiles: &mockProfiles{patients: make(map[string]*identity.PatientProfile)},
		clients: &mockClients{clients: map[string]*models.Client{
			"swagger-client": {
				ClientID:         "swagger-client",
				ClientSecretHash: string(secret),
				GrantTypes:       models.StringList{"password", "refresh_token", "client_credentials"},
				Scopes:           models.StringList{"profile", "email", "roles", "api"},
			},
			"spa": {
				ClientID:   "spa",
				GrantTypes: models.StringList{"password", "refresh_token"},
				Scopes:     models.StringList{"api"},
			},
			"legacy": {
				ClientID:   "legacy",
				GrantTypes: models.StringList{"refresh_token"},
			},
		}},
		tokens: tokens,
	}

	f.dispatcher, err = NewDispatcher(Dependencies{
		Users:    f.store,
		Enricher: claims.NewEnricher(f.store, f.profiles, nil),
		Tokens:   tokens,
		Clients:  f.clients,
	}, opts)
	require.NoError(t, err)
	return f
}
