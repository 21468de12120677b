package claims

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
)

// Role names with dedicated enrichment.
const (
	RoleAdmin   = "Admin"
	RoleDoctor  = "Doctor"
	RolePatient = "Patient"
)

// AccountReader is the part of the identity store the enricher reads.
type AccountReader interface {
	GetRoles(ctx context.Context, user *models.User) ([]string, error)
	GetClaims(ctx context.Context, user *models.User) ([]identity.StoredClaim, error)
}

// Enricher assembles the claim set of a user principal from the account,
// its roles, its role profiles and its stored claims. It never writes.
type Enricher struct {
	accounts AccountReader
	profiles identity.ProfileStore
	now      func() time.Time
}

// NewEnricher returns an Enricher. now defaults to time.Now.
func NewEnricher(accounts AccountReader, profiles identity.ProfileStore, now func() time.Time) *Enricher {
	if now == nil {
		now = time.Now
	}
	return &Enricher{accounts: accounts, profiles: profiles, now: now}
}

// Enrich builds the principal for user with the granted scopes attached.
// Destinations are not assigned; callers run Route afterwards.
func (e *Enricher) Enrich(ctx context.Context, user *models.User, scopes []string) (*Principal, error) {
	p := &Principal{
		Subject: user.ID,
		Type:    PrincipalUser,
	}

	p.SetValue(KindSubject, user.ID)
	p.SetValue(KindEmail, user.Email)
	p.SetValue(KindName, user.Username)
	p.SetValue(KindPreferredUsername, user.Username)

	if user.FullName != "" {
		parts := strings.Split(user.FullName, " ")
		p.SetValue(KindGivenName, parts[0])
		p.SetValue(KindFamilyName, parts[len(parts)-1])
		p.SetValue(KindFullName, user.FullName)
	}

	p.SetValue(KindEmailVerified, strconv.FormatBool(user.EmailConfirmed))
	p.SetValue(KindPhoneNumberVerified, strconv.FormatBool(user.PhoneNumberConfirmed))
	if user.PhoneNumber != "" {
		p.SetValue(KindPhoneNumber, user.PhoneNumber)
	}

	roles, err := e.accounts.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if len(roles) > 0 {
		p.SetMany(KindRole, uniqueOrdered(roles))
		if err := e.addRoleClaims(ctx, p, user.ID); err != nil {
			return nil, err
		}
	}

	stored, err := e.accounts.GetClaims(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load stored claims: %w", err)
	}
	for _, sc := range stored {
		p.Set(Parse(sc.Type, sc.Value))
	}

	p.Scopes = uniqueOrdered(scopes)
	p.Resources = ResourcesForScopes(p.Scopes)
	return p, nil
}

func (e *Enricher) addRoleClaims(ctx context.Context, p *Principal, userID string) error {
	if p.IsInRole(RoleDoctor) {
		doctor, err := e.profiles.GetDoctorProfile(ctx, userID)
		switch {
		case errors.Is(err, identity.ErrProfileNotFound):
			// role without a profile yet
		case err != nil:
			return fmt.Errorf("load doctor profile: %w", err)
		default:
			p.SetValue(KindDoctorID, doctor.DoctorID)
			p.SetValue(KindLicenseNumber, doctor.LicenseNumber)
			p.SetValue(KindSpecialization, doctor.Specialization)
			p.SetValue(KindDepartment, doctor.Department)
			p.SetValue(KindEmployeeID, doctor.EmployeeID)
			p.SetValue(KindCanPrescribe, "true")
		}
	}

	if p.IsInRole(RolePatient) {
		patient, err := e.profiles.GetPatientProfile(ctx, userID)
		switch {
		case errors.Is(err, identity.ErrProfileNotFound):
			// role without a profile yet
		case err != nil:
			return fmt.Errorf("load patient profile: %w", err)
		default:
			p.SetValue(KindPatientID, patient.PatientID)
			p.SetValue(KindInsuranceNumber, patient.InsuranceNumber)
			if patient.DateOfBirth != nil {
				p.SetValue(KindDateOfBirth, patient.DateOfBirth.Format(DateLayout))
				p.SetValue(KindAge, strconv.Itoa(Age(*patient.DateOfBirth, e.now())))
			}
		}
	}

	if p.IsInRole(RoleAdmin) {
		p.SetValue(KindAdminLevel, "full")
		p.SetValue(KindCanManageUsers, "true")
		p.SetValue(KindCanViewReports, "true")
	}
	return nil
}

// ForClient builds the principal of a client application authenticated with
// its own credentials. Scope "api" is always granted.
func ForClient(clientID string, scopes []string) *Principal {
	p := &Principal{
		Subject:  clientID,
		Type:     PrincipalClient,
		ClientID: clientID,
	}
	p.SetValue(KindSubject, clientID)
	p.SetValue(KindClientType, "service")
	p.Scopes = uniqueOrdered(append(append([]string(nil), scopes...), "api"))
	p.Resources = ResourcesForScopes(p.Scopes)
	return p
}

func uniqueOrdered(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
