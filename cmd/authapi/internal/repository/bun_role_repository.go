package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

// ========================================
// Role Repository
// ========================================

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) RoleRepository {
	return &BunRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunRoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = bunx.NewUUIDv7()
	}

	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetByName retrieves a role by name
func (r *BunRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// List retrieves all roles ordered by name
func (r *BunRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// ========================================
// UserRole Repository
// ========================================

// BunUserRoleRepository implements UserRoleRepository using Bun ORM
type BunUserRoleRepository struct {
	db *bun.DB
}

// NewBunUserRoleRepository creates a new Bun-based user role repository
func NewBunUserRoleRepository(db *bun.DB) UserRoleRepository {
	return &BunUserRoleRepository{db: db}
}

// Assign grants a role to a user. Assigning an existing pair is a no-op.
func (r *BunUserRoleRepository) Assign(ctx context.Context, userID, roleID string) error {
	_, err := r.db.NewInsert().
		Model(&models.UserRole{UserID: userID, RoleID: roleID}).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Revoke removes a role from a user
func (r *BunUserRoleRepository) Revoke(ctx context.Context, userID, roleID string) error {
	_, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// RoleNamesForUser returns the names of the roles assigned to a user
func (r *BunUserRoleRepository) RoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		ColumnExpr("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list roles for user: %w", err)
	}
	return names, nil
}
