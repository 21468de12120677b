package cmdutil

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/bootstrap"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// Repositories groups the Bun repositories the commands write through.
type Repositories struct {
	Users       *repository.BunUserRepository
	Roles       repository.RoleRepository
	UserRoles   repository.UserRoleRepository
	UserClaims  repository.UserClaimRepository
	Profiles    repository.ProfileRepository
	Clients     repository.ClientRepository
	RevokedJTIs repository.RevokedJTIRepository
}

// Stack bundles the repositories with their underlying DB connection so
// callers can reuse the connection for migrations when necessary.
type Stack struct {
	DB    *bun.DB
	Repos Repositories
}

// Close releases the underlying database connection.
func (s *Stack) Close() {
	if s == nil || s.DB == nil {
		return
	}
	bunx.Close(s.DB)
}

// BootstrapDependencies returns the repositories the seeder needs.
func (s *Stack) BootstrapDependencies() bootstrap.Dependencies {
	return bootstrap.Dependencies{
		Users:     s.Repos.Users,
		Roles:     s.Repos.Roles,
		UserRoles: s.Repos.UserRoles,
		Clients:   s.Repos.Clients,
	}
}

// NewStack centralizes database and repository construction for CLI commands.
func NewStack(ctx context.Context, cfg *config.Config) (*Stack, error) {
	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Stack{
		DB: db,
		Repos: Repositories{
			Users:       repository.NewBunUserRepository(db),
			Roles:       repository.NewBunRoleRepository(db),
			UserRoles:   repository.NewBunUserRoleRepository(db),
			UserClaims:  repository.NewBunUserClaimRepository(db),
			Profiles:    repository.NewBunProfileRepository(db),
			Clients:     repository.NewBunClientRepository(db),
			RevokedJTIs: repository.NewBunRevokedJTIRepository(db),
		},
	}, nil
}
