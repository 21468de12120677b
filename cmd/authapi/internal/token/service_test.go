package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

type mockRevokedRepo struct {
	rows map[string]*models.RevokedJTI
	err  error
	hits int
}

func newMockRevokedRepo() *mockRevokedRepo {
	return &mockRevokedRepo{rows: make(map[string]*models.RevokedJTI)}
}

func (m *mockRevokedRepo) Create(_ context.Context, r *models.RevokedJTI) error {
	if m.err != nil {
		return m.err
	}
	m.rows[r.JTI] = r
	return nil
}

func (m *mockRevokedRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.hits++
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.rows[jti]
	return ok, nil
}

func (m *mockRevokedRepo) DeleteExpired(context.Context, time.Duration) error { return nil }

var testKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, repo *mockRevokedRepo) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Now().Truncate(time.Second)}
	var revoked repository.RevokedJTIRepository
	if repo != nil {
		revoked = repo
	}
	svc, err := NewService(testKey, "kid-1", revoked, Options{
		Issuer:          "https://auth.hospital.test",
		Audience:        "hospital_api",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		IDTokenTTL:      20 * time.Minute,
		Now:             clock.Now,
	})
	require.NoError(t, err)
	return svc, clock
}

func doctorPrincipal(scopes ...string) *claims.Principal {
	p := &claims.Principal{Subject: "user-1", Type: claims.PrincipalUser, ClientID: "swagger-client"}
	p.SetValue(claims.KindSubject, "user-1")
	p.SetValue(claims.KindName, "house")
	p.SetValue(claims.KindEmail, "house@hospital.com")
	p.SetValue(claims.KindGivenName, "Gregory")
	p.SetMany(claims.KindRole, []string{"Doctor", "Manager"})
	p.SetValue(claims.KindDepartment, "Cardiology")
	p.SetValue(claims.KindInsuranceNumber, "INS-1")
	p.Scopes = scopes
	p.Resources = claims.ResourcesForScopes(scopes)
	claims.Route(p)
	return p
}

// payload decodes the unverified JWT body for inspection.
func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	out := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(raw, out)
	require.NoError(t, err)
	return out
}

func TestIssueTokenPair_UserWithOpenID(t *testing.T) {
	svc, _ := newTestService(t, newMockRevokedRepo())

	pair, err := svc.IssueTokenPair(context.Background(), doctorPrincipal("openid", "profile", "api"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.Equal(t, "openid profile api", pair.Scope)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, pair.IDToken)

	access := payload(t, pair.AccessToken)
	assert.Equal(t, "user-1", access["sub"])
	assert.Equal(t, "access", access["token_use"])
	assert.Equal(t, "swagger-client", access["client_id"])
	assert.Equal(t, "Cardiology", access["department"])
	assert.ElementsMatch(t, []any{"Doctor", "Manager"}, access["role"])
	assert.ElementsMatch(t, []any{"hospital_api"}, audienceOf(access))
	assert.NotContains(t, access, "insurance_number")
	assert.NotContains(t, access, "given_name", "given_name is identity-token only")

	id := payload(t, pair.IDToken)
	assert.Equal(t, "id", id["token_use"])
	assert.Equal(t, "Gregory", id["given_name"])
	assert.Equal(t, "house", id["name"])
	assert.NotContains(t, id, "role", "roles scope not granted")
	assert.NotContains(t, id, "email", "email scope not granted")
	assert.Equal(t, []any{"swagger-client"}, audienceOf(id))

	refresh := payload(t, pair.RefreshToken)
	assert.Equal(t, "refresh", refresh["token_use"])
	assert.Equal(t, "openid profile api", refresh["scope"])
	assert.NotContains(t, refresh, "department")
}

func TestIssueTokenPair_SingleRoleIsString(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p := doctorPrincipal()
	p.SetMany(claims.KindRole, []string{"Doctor"})
	claims.Route(p)

	pair, err := svc.IssueTokenPair(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Doctor", payload(t, pair.AccessToken)["role"])
	assert.Empty(t, pair.IDToken, "no openid scope")
}

func TestIssueTokenPair_ClientCredentials(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p := claims.ForClient("reporting", []string{"openid"})
	claims.Route(p)

	pair, err := svc.IssueTokenPair(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, pair.RefreshToken)
	assert.Empty(t, pair.IDToken)

	access := payload(t, pair.AccessToken)
	assert.Equal(t, "service", access["client_type"])
	assert.Equal(t, "reporting", access["sub"])
	assert.Equal(t, "openid api", access["scope"])
}

func TestIssueTokenPair_RequiresSubject(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.IssueTokenPair(context.Background(), &claims.Principal{})
	assert.Error(t, err)
}

func TestValidateToken_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, newMockRevokedRepo())
	pair, err := svc.IssueTokenPair(context.Background(), doctorPrincipal("api", "roles"))
	require.NoError(t, err)

	v, err := svc.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, UseAccess, v.Use)
	assert.Equal(t, "swagger-client", v.ClientID)
	assert.NotEmpty(t, v.JTI)

	p := v.Principal
	assert.Equal(t, "user-1", p.Subject)
	assert.Equal(t, claims.PrincipalUser, p.Type)
	assert.Equal(t, []string{"Doctor", "Manager"}, p.Roles())
	assert.Equal(t, []string{"api", "roles"}, p.Scopes)
	assert.Equal(t, []string{"hospital_api"}, p.Resources)
	dept, _ := p.First("department")
	assert.Equal(t, "Cardiology", dept)
	assert.False(t, p.Has("insurance_number"))

	refresh, err := svc.ValidateToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, UseRefresh, refresh.Use)
	assert.Equal(t, []string{"api", "roles"}, refresh.Principal.Scopes)
}

func TestValidateToken_ClientPrincipal(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p := claims.ForClient("reporting", nil)
	claims.Route(p)
	pair, err := svc.IssueTokenPair(context.Background(), p)
	require.NoError(t, err)

	v, err := svc.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, claims.PrincipalClient, v.Principal.Type)
	assert.Equal(t, "reporting", v.ClientID)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc, clock := newTestService(t, nil)
	pair, err := svc.IssueTokenPair(context.Background(), doctorPrincipal())
	require.NoError(t, err)

	other, _ := newTestService(t, nil)
	other.opts.Issuer = "https://elsewhere.test"
	foreign, err := other.IssueTokenPair(context.Background(), doctorPrincipal())
	require.NoError(t, err)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged, err := NewService(otherKey, "kid-1", nil, svc.opts)
	require.NoError(t, err)
	forgedPair, err := forged.IssueTokenPair(context.Background(), doctorPrincipal())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "  "},
		{name: "garbage", raw: "not-a-jwt"},
		{name: "wrong issuer", raw: foreign.AccessToken},
		{name: "wrong key", raw: forgedPair.AccessToken},
		{name: "tampered", raw: tamper(pair.AccessToken)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	t.Run("expired", func(t *testing.T) {
		clock.now = clock.now.Add(2 * time.Hour)
		_, err := svc.ValidateToken(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)

		_, err = svc.ValidateToken(context.Background(), pair.RefreshToken)
		assert.NoError(t, err, "refresh token outlives the access token")
	})
}

func TestRevoke(t *testing.T) {
	repo := newMockRevokedRepo()
	svc, _ := newTestService(t, repo)
	pair, err := svc.IssueTokenPair(context.Background(), doctorPrincipal())
	require.NoError(t, err)

	v, err := svc.ValidateToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), v))
	assert.Contains(t, repo.rows, v.JTI)
	assert.Equal(t, "user-1", repo.rows[v.JTI].Subject)

	hits := repo.hits
	_, err = svc.ValidateToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, hits, repo.hits, "cache answers before the repository")

	// A fresh service sharing the repository sees the revocation too
	restarted, _ := newTestService(t, repo)
	_, err = restarted.ValidateToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(context.Background(), pair.AccessToken)
	assert.NoError(t, err, "other tokens of the pair stay valid")
}

func TestValidateToken_RepositoryFailure(t *testing.T) {
	repo := newMockRevokedRepo()
	svc, _ := newTestService(t, repo)
	pair, err := svc.IssueTokenPair(context.Background(), doctorPrincipal())
	require.NoError(t, err)

	repo.err = errors.New("connection refused")
	_, err = svc.ValidateToken(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestJWKS(t *testing.T) {
	svc, _ := newTestService(t, nil)
	set := svc.JWKS()
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "kid-1", set.Keys[0].KeyID)
	assert.True(t, set.Keys[0].IsPublic())

	body, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"kty":"RSA"`)
	assert.NotContains(t, string(body), `"d":`)
}

func TestLoadOrGenerateSigningKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.pem")

	key, kid, err := LoadOrGenerateSigningKey(path)
	require.NoError(t, err)
	require.NotEmpty(t, kid)

	again, kidAgain, err := LoadOrGenerateSigningKey(path)
	require.NoError(t, err)
	assert.Equal(t, kid, kidAgain)
	assert.True(t, key.Equal(again))

	ephemeral, ephemeralKid, err := LoadOrGenerateSigningKey("")
	require.NoError(t, err)
	assert.NotEqual(t, kid, ephemeralKid)
	assert.False(t, key.Equal(ephemeral))
}

func audienceOf(c map[string]any) []any {
	switch aud := c["aud"].(type) {
	case string:
		return []any{aud}
	case []any:
		return aud
	}
	return nil
}

func tamper(raw string) string {
	parts := strings.Split(raw, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}
