package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
}

// RoleRepository exposes persistence operations for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
}

// UserRoleRepository manages user to role assignments.
type UserRoleRepository interface {
	Assign(ctx context.Context, userID, roleID string) error
	Revoke(ctx context.Context, userID, roleID string) error
	// RoleNamesForUser returns role names ordered by name.
	RoleNamesForUser(ctx context.Context, userID string) ([]string, error)
}

// UserClaimRepository stores ad-hoc claims attached to users.
type UserClaimRepository interface {
	Add(ctx context.Context, claim *models.UserClaim) error
	ListByUser(ctx context.Context, userID string) ([]models.UserClaim, error)
	DeleteByType(ctx context.Context, userID, claimType string) error
}

// ProfileRepository reads and writes doctor and patient profiles.
type ProfileRepository interface {
	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	CreatePatient(ctx context.Context, patient *models.Patient) error
	GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error)
	GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error)
}

// ClientRepository exposes persistence operations for OAuth clients.
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
}

// RevokedJTIRepository manages the token revocation denylist.
type RevokedJTIRepository interface {
	Create(ctx context.Context, revokedJTI *models.RevokedJTI) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, gracePeriod time.Duration) error
}
