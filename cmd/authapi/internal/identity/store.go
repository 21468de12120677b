package identity

import (
	"context"
	"errors"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
)

var (
	// ErrUserNotFound is returned when no user matches a username, email or id.
	ErrUserNotFound = errors.New("user not found")

	// ErrProfileNotFound is returned when a user has no profile for a role.
	ErrProfileNotFound = errors.New("profile not found")
)

// SignInResult is the outcome of a password check.
type SignInResult int

const (
	SignInInvalid SignInResult = iota
	SignInSucceeded
	SignInLockedOut
	SignInRequiresTwoFactor
)

func (r SignInResult) String() string {
	switch r {
	case SignInSucceeded:
		return "succeeded"
	case SignInLockedOut:
		return "locked_out"
	case SignInRequiresTwoFactor:
		return "requires_two_factor"
	default:
		return "invalid"
	}
}

// StoredClaim is an ad-hoc claim persisted against a user.
type StoredClaim struct {
	Type  string
	Value string
}

// Store is the user account store consumed by the grant handlers.
type Store interface {
	// FindByUsernameOrEmail looks the login up as a username first, then as an email.
	FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// VerifyPassword checks the password with lockout-on-failure semantics.
	VerifyPassword(ctx context.Context, user *models.User, password string) (SignInResult, error)
	IsLockedOut(user *models.User) bool
	GetRoles(ctx context.Context, user *models.User) ([]string, error)
	GetClaims(ctx context.Context, user *models.User) ([]StoredClaim, error)
	CanSignIn(ctx context.Context, user *models.User) (bool, error)
}

// DoctorProfile is the read-only clinical profile of a doctor.
type DoctorProfile struct {
	DoctorID       string
	LicenseNumber  string
	Specialization string
	Department     string
	EmployeeID     string
}

// PatientProfile is the read-only profile of a patient.
type PatientProfile struct {
	PatientID       string
	InsuranceNumber string
	DateOfBirth     *time.Time
}

// ProfileStore reads role-specific profiles. Missing profiles yield ErrProfileNotFound.
type ProfileStore interface {
	GetDoctorProfile(ctx context.Context, userID string) (*DoctorProfile, error)
	GetPatientProfile(ctx context.Context, userID string) (*PatientProfile, error)
}
