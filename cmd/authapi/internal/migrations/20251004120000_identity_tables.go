package migrations

import (
	"context"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20251004120000, down_20251004120000)
}

// up_20251004120000 creates the identity store tables: users, roles, user_roles,
// user_claims, oauth_clients and revoked_jti.
func up_20251004120000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	if _, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`); err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`); err != nil {
		return fmt.Errorf("failed to create users username index: %w", err)
	}
	if IsPostgreSQL(db) {
		// Password grants look users up by email case-insensitively
		if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`); err != nil {
			return fmt.Errorf("failed to create users lower(email) index: %w", err)
		}
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating roles table...")
	if _, err := db.NewCreateTable().
		Model((*models.Role)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create roles table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating user_roles table...")
	if _, err := db.NewCreateTable().
		Model((*models.UserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create user_roles table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating user_claims table...")
	if _, err := db.NewCreateTable().
		Model((*models.UserClaim)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create user_claims table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_claims_user_id ON user_claims(user_id)`); err != nil {
		return fmt.Errorf("failed to create user_claims index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating oauth_clients table...")
	if _, err := db.NewCreateTable().
		Model((*models.Client)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create oauth_clients table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating revoked_jti table...")
	if _, err := db.NewCreateTable().
		Model((*models.RevokedJTI)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create revoked_jti table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_revoked_jti_exp ON revoked_jti(exp)`); err != nil {
		return fmt.Errorf("failed to create revoked_jti exp index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251004120000 drops the identity store tables in reverse dependency order
func down_20251004120000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping identity tables...")
	for _, model := range []any{
		(*models.RevokedJTI)(nil),
		(*models.Client)(nil),
		(*models.UserClaim)(nil),
		(*models.UserRole)(nil),
		(*models.Role)(nil),
		(*models.User)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
