package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct {
	roles  map[string][]string
	claims map[string][]identity.StoredClaim
	err    error
}

func (m *mockAccounts) GetRoles(_ context.Context, user *models.User) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roles[user.ID], nil
}

func (m *mockAccounts) GetClaims(_ context.Context, user *models.User) ([]identity.StoredClaim, error) {
	return m.claims[user.ID], nil
}

type mockProfiles struct {
	doctors  map[string]*identity.DoctorProfile
	patients map[string]*identity.PatientProfile
	err      error
	calls    int
}

func (m *mockProfiles) GetDoctorProfile(_ context.Context, userID string) (*identity.DoctorProfile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if d, ok := m.doctors[userID]; ok {
		return d, nil
	}
	return nil, identity.ErrProfileNotFound
}

func (m *mockProfiles) GetPatientProfile(_ context.Context, userID string) (*identity.PatientProfile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.patients[userID]; ok {
		return p, nil
	}
	return nil, identity.ErrProfileNotFound
}

var enrichNow = time.Date(2025, 10, 4, 9, 30, 0, 0, time.UTC)

func newTestEnricher(accounts *mockAccounts, profiles *mockProfiles) *Enricher {
	return NewEnricher(accounts, profiles, func() time.Time { return enrichNow })
}

func TestEnricher_Admin(t *testing.T) {
	user := &models.User{ID: "admin-1", Username: "admin@hospital.com", Email: "admin@hospital.com", EmailConfirmed: true, FullName: "System Administrator"}
	accounts := &mockAccounts{roles: map[string][]string{"admin-1": {"Admin"}}}
	profiles := &mockProfiles{}

	p, err := newTestEnricher(accounts, profiles).Enrich(context.Background(), user, []string{"openid", "api", "api"})
	require.NoError(t, err)

	assert.Equal(t, "admin-1", p.Subject)
	assert.Equal(t, PrincipalUser, p.Type)
	assert.Equal(t, []string{"Admin"}, p.Roles())
	assertClaim(t, p, "sub", "admin-1")
	assertClaim(t, p, "email", "admin@hospital.com")
	assertClaim(t, p, "name", "admin@hospital.com")
	assertClaim(t, p, "preferred_username", "admin@hospital.com")
	assertClaim(t, p, "given_name", "System")
	assertClaim(t, p, "family_name", "Administrator")
	assertClaim(t, p, "full_name", "System Administrator")
	assertClaim(t, p, "email_verified", "true")
	assertClaim(t, p, "phone_number_verified", "false")
	assertClaim(t, p, "admin_level", "full")
	assertClaim(t, p, "can_manage_users", "true")
	assertClaim(t, p, "can_view_reports", "true")
	assert.False(t, p.Has("phone_number"))
	assert.False(t, p.Has("insurance_number"))
	assert.Equal(t, 0, profiles.calls, "admins have no profile lookups")

	assert.Equal(t, []string{"openid", "api"}, p.Scopes)
	assert.Equal(t, []string{"hospital_api"}, p.Resources)
}

func TestEnricher_Doctor(t *testing.T) {
	user := &models.User{ID: "doc-1", Username: "house", Email: "house@hospital.com", PhoneNumber: "+100", PhoneNumberConfirmed: true}
	accounts := &mockAccounts{roles: map[string][]string{"doc-1": {"Doctor"}}}
	profiles := &mockProfiles{doctors: map[string]*identity.DoctorProfile{
		"doc-1": {DoctorID: "d-9", LicenseNumber: "LIC", Specialization: "Diagnostics", Department: "Cardiology", EmployeeID: "E-1"},
	}}

	p, err := newTestEnricher(accounts, profiles).Enrich(context.Background(), user, nil)
	require.NoError(t, err)

	assertClaim(t, p, "doctor_id", "d-9")
	assertClaim(t, p, "license_number", "LIC")
	assertClaim(t, p, "specialization", "Diagnostics")
	assertClaim(t, p, "department", "Cardiology")
	assertClaim(t, p, "employee_id", "E-1")
	assertClaim(t, p, "can_prescribe", "true")
	assertClaim(t, p, "phone_number", "+100")
	assertClaim(t, p, "phone_number_verified", "true")
	assert.False(t, p.Has("given_name"), "no full name, no name parts")
	assert.Empty(t, p.Resources)
}

func TestEnricher_PatientAge(t *testing.T) {
	dob := time.Date(1990, 10, 5, 0, 0, 0, 0, time.UTC) // birthday is tomorrow
	user := &models.User{ID: "pat-1", Username: "pat", Email: "pat@example.com"}
	accounts := &mockAccounts{roles: map[string][]string{"pat-1": {"Patient"}}}
	profiles := &mockProfiles{patients: map[string]*identity.PatientProfile{
		"pat-1": {PatientID: "p-3", InsuranceNumber: "INS-7", DateOfBirth: &dob},
	}}

	p, err := newTestEnricher(accounts, profiles).Enrich(context.Background(), user, []string{"openid", "profile", "roles"})
	require.NoError(t, err)

	assertClaim(t, p, "patient_id", "p-3")
	assertClaim(t, p, "insurance_number", "INS-7")
	assertClaim(t, p, "date_of_birth", "1990-10-05")
	assertClaim(t, p, "age", "34")

	Route(p)
	for _, c := range p.Claims {
		if c.Kind == KindInsuranceNumber {
			assert.True(t, c.Destinations.IsEmpty())
		}
		if c.Kind == KindPatientID {
			assert.True(t, c.Destinations.Has(IdentityToken))
		}
	}
}

func TestEnricher_PatientWithoutDateOfBirth(t *testing.T) {
	user := &models.User{ID: "pat-2", Username: "pat2", Email: "pat2@example.com"}
	accounts := &mockAccounts{roles: map[string][]string{"pat-2": {"Patient"}}}
	profiles := &mockProfiles{patients: map[string]*identity.PatientProfile{"pat-2": {PatientID: "p-4"}}}

	p, err := newTestEnricher(accounts, profiles).Enrich(context.Background(), user, nil)
	require.NoError(t, err)
	assertClaim(t, p, "patient_id", "p-4")
	assert.False(t, p.Has("date_of_birth"))
	assert.False(t, p.Has("age"))
}

func TestEnricher_MissingProfileSkipped(t *testing.T) {
	user := &models.User{ID: "doc-2", Username: "newdoc", Email: "newdoc@hospital.com"}
	accounts := &mockAccounts{roles: map[string][]string{"doc-2": {"Doctor", "Patient"}}}

	p, err := newTestEnricher(accounts, &mockProfiles{}).Enrich(context.Background(), user, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doctor", "Patient"}, p.Roles())
	assert.False(t, p.Has("doctor_id"))
	assert.False(t, p.Has("patient_id"))
}

func TestEnricher_StoredClaimsOverwriteByType(t *testing.T) {
	user := &models.User{ID: "doc-3", Username: "doc3", Email: "doc3@hospital.com"}
	accounts := &mockAccounts{
		roles: map[string][]string{"doc-3": {"Doctor"}},
		claims: map[string][]identity.StoredClaim{"doc-3": {
			{Type: "department", Value: "Cardiac Surgery"},
			{Type: "employment_type", Value: "full-time"},
		}},
	}
	profiles := &mockProfiles{doctors: map[string]*identity.DoctorProfile{"doc-3": {DoctorID: "d-3", Department: "Oncology"}}}

	p, err := newTestEnricher(accounts, profiles).Enrich(context.Background(), user, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiac Surgery"}, p.Values("department"))
	assertClaim(t, p, "employment_type", "full-time")
}

func TestEnricher_InfrastructureErrors(t *testing.T) {
	user := &models.User{ID: "doc-4", Username: "doc4", Email: "doc4@hospital.com"}
	boom := errors.New("context deadline exceeded")

	_, err := newTestEnricher(&mockAccounts{err: boom}, &mockProfiles{}).Enrich(context.Background(), user, nil)
	assert.ErrorIs(t, err, boom)

	accounts := &mockAccounts{roles: map[string][]string{"doc-4": {"Doctor"}}}
	p, err := newTestEnricher(accounts, &mockProfiles{err: boom}).Enrich(context.Background(), user, nil)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, p, "no partial principal")
}

func TestForClient(t *testing.T) {
	p := ForClient("reporting-service", []string{"appointments"})
	assert.Equal(t, PrincipalClient, p.Type)
	assert.Equal(t, "reporting-service", p.Subject)
	assertClaim(t, p, "client_type", "service")
	assert.Equal(t, []string{"appointments", "api"}, p.Scopes)
	assert.Equal(t, []string{"hospital_api", "appointment_service"}, p.Resources)
	assert.Empty(t, p.Roles())
}

func assertClaim(t *testing.T, p *Principal, name, want string) {
	t.Helper()
	got, ok := p.First(name)
	if assert.True(t, ok, "claim %s missing", name) {
		assert.Equal(t, want, got, "claim %s", name)
	}
}
