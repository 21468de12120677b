// Package bootstrap seeds the data a fresh deployment needs before the first
// token request: default roles, the administrator account and the
// documentation client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// DefaultRoles are created when missing.
var DefaultRoles = []models.Role{
	{Name: claims.RoleAdmin, Description: "Hospital administrators with full access"},
	{Name: claims.RoleDoctor, Description: "Clinical staff with a doctor profile"},
	{Name: claims.RolePatient, Description: "Patients with a patient profile"},
}

// DefaultClientScopes are the scopes granted to the bootstrap client.
var DefaultClientScopes = []string{
	oidc.ScopeProfile, oidc.ScopeEmail, claims.ScopeRoles, "api", "appointments", "medical_records",
}

// Dependencies are the repositories the seeder writes through.
type Dependencies struct {
	Users     repository.UserRepository
	Roles     repository.RoleRepository
	UserRoles repository.UserRoleRepository
	Clients   repository.ClientRepository
}

// Report says what a Run created. Existing rows are left untouched.
type Report struct {
	RolesCreated  []string
	AdminCreated  bool
	ClientCreated bool
}

// Run seeds roles, the admin user and the OAuth client. It is idempotent:
// anything that already exists is kept as is.
func Run(ctx context.Context, deps Dependencies, cfg config.BootstrapConfig) (*Report, error) {
	report := &Report{}

	roleIDs := make(map[string]string, len(DefaultRoles))
	for _, def := range DefaultRoles {
		role, err := deps.Roles.GetByName(ctx, def.Name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			role = &models.Role{Name: def.Name, Description: def.Description}
			if err := deps.Roles.Create(ctx, role); err != nil {
				return nil, fmt.Errorf("seed role %s: %w", def.Name, err)
			}
			report.RolesCreated = append(report.RolesCreated, def.Name)
		case err != nil:
			return nil, fmt.Errorf("look up role %s: %w", def.Name, err)
		}
		roleIDs[def.Name] = role.ID
	}

	if cfg.AdminEmail != "" {
		created, err := seedAdmin(ctx, deps, cfg, roleIDs[claims.RoleAdmin])
		if err != nil {
			return nil, err
		}
		report.AdminCreated = created
	}

	if cfg.ClientID != "" {
		created, err := seedClient(ctx, deps, cfg)
		if err != nil {
			return nil, err
		}
		report.ClientCreated = created
	}

	if len(report.RolesCreated) > 0 || report.AdminCreated || report.ClientCreated {
		log.Printf("INFO: bootstrap created roles=%v admin=%t client=%t", report.RolesCreated, report.AdminCreated, report.ClientCreated)
	}
	return report, nil
}

func seedAdmin(ctx context.Context, deps Dependencies, cfg config.BootstrapConfig, adminRoleID string) (bool, error) {
	_, err := deps.Users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := identity.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("admin password: %w", err)
	}
	admin := &models.User{
		Username:       cfg.AdminEmail,
		Email:          cfg.AdminEmail,
		EmailConfirmed: true,
		FullName:       cfg.AdminFullName,
		PasswordHash:   hash,
		SecurityStamp:  identity.NewSecurityStamp(),
		LockoutEnabled: true,
	}
	if err := deps.Users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}
	if err := deps.UserRoles.Assign(ctx, admin.ID, adminRoleID); err != nil {
		return false, fmt.Errorf("assign admin role: %w", err)
	}
	return true, nil
}

func seedClient(ctx context.Context, deps Dependencies, cfg config.BootstrapConfig) (bool, error) {
	_, err := deps.Clients.GetByClientID(ctx, cfg.ClientID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("look up client %s: %w", cfg.ClientID, err)
	}

	client := &models.Client{
		ClientID:    cfg.ClientID,
		DisplayName: "Swagger UI Client",
		GrantTypes: models.StringList{
			string(grant.GrantTypePassword),
			string(oidc.GrantTypeRefreshToken),
			string(oidc.GrantTypeClientCredentials),
		},
		Scopes: append(models.StringList(nil), DefaultClientScopes...),
	}
	if cfg.ClientSecret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.ClientSecret), bcrypt.DefaultCost)
		if err != nil {
			return false, fmt.Errorf("hash client secret: %w", err)
		}
		client.ClientSecretHash = string(hash)
	}
	if err := deps.Clients.Create(ctx, client); err != nil {
		return false, fmt.Errorf("create client %s: %w", cfg.ClientID, err)
	}
	return true, nil
}
