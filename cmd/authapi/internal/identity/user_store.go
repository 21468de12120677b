package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Options mirrors the sign-in and lockout settings of the account store.
type Options struct {
	RequireConfirmedEmail   bool
	MaxFailedAccessAttempts int
	LockoutDuration         time.Duration
	// Now is the clock used for lockout windows. Defaults to time.Now.
	Now func() time.Time
}

// UserStore implements Store on top of the user, role and claim repositories.
type UserStore struct {
	users     repository.UserRepository
	userRoles repository.UserRoleRepository
	claims    repository.UserClaimRepository
	opts      Options
}

var _ Store = (*UserStore)(nil)

// NewUserStore constructs a repository-backed Store.
func NewUserStore(users repository.UserRepository, userRoles repository.UserRoleRepository, claims repository.UserClaimRepository, opts Options) *UserStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxFailedAccessAttempts <= 0 {
		opts.MaxFailedAccessAttempts = 5
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = 5 * time.Minute
	}
	return &UserStore{users: users, userRoles: userRoles, claims: claims, opts: opts}
}

// FindByUsernameOrEmail resolves a login by username, falling back to email.
func (s *UserStore) FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user by username: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByID resolves a user by id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// VerifyPassword checks password against the stored bcrypt hash. Each failure
// increments the failed-attempt counter; reaching the threshold opens a lockout
// window and resets the counter. A success resets the counter.
func (s *UserStore) VerifyPassword(ctx context.Context, user *models.User, password string) (SignInResult, error) {
	if s.IsLockedOut(user) {
		return SignInLockedOut, nil
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if !user.LockoutEnabled {
			return SignInInvalid, nil
		}
		user.AccessFailedCount++
		result := SignInInvalid
		if user.AccessFailedCount >= s.opts.MaxFailedAccessAttempts {
			end := s.opts.Now().Add(s.opts.LockoutDuration)
			user.LockoutEnd = &end
			user.AccessFailedCount = 0
			result = SignInLockedOut
			log.Printf("WARNING: user %s locked out until %s", user.ID, end.Format(time.RFC3339))
		}
		if err := s.users.Update(ctx, user); err != nil {
			return SignInInvalid, fmt.Errorf("record failed access: %w", err)
		}
		return result, nil
	}

	if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
		user.AccessFailedCount = 0
		user.LockoutEnd = nil
		if err := s.users.Update(ctx, user); err != nil {
			return SignInInvalid, fmt.Errorf("reset failed access: %w", err)
		}
	}

	if user.TwoFactorEnabled {
		return SignInRequiresTwoFactor, nil
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		// Not fatal: the credential check already succeeded
		log.Printf("WARNING: failed to update last login for user %s: %v", user.ID, err)
	}
	return SignInSucceeded, nil
}

// IsLockedOut reports whether the user's lockout window is open.
func (s *UserStore) IsLockedOut(user *models.User) bool {
	return user.IsLockedOut(s.opts.Now())
}

// GetRoles returns the user's role names.
func (s *UserStore) GetRoles(ctx context.Context, user *models.User) ([]string, error) {
	roles, err := s.userRoles.RoleNamesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	return roles, nil
}

// GetClaims returns the ad-hoc claims stored against the user.
func (s *UserStore) GetClaims(ctx context.Context, user *models.User) ([]StoredClaim, error) {
	rows, err := s.claims.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	out := make([]StoredClaim, 0, len(rows))
	for _, row := range rows {
		out = append(out, StoredClaim{Type: row.ClaimType, Value: row.ClaimValue})
	}
	return out, nil
}

// CanSignIn reports whether the account may currently obtain tokens.
func (s *UserStore) CanSignIn(_ context.Context, user *models.User) (bool, error) {
	if user.DisabledAt != nil {
		return false, nil
	}
	if s.opts.RequireConfirmedEmail && !user.EmailConfirmed {
		return false, nil
	}
	return true, nil
}
