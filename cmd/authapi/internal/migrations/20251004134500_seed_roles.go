package migrations

import (
	"context"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20251004134500, down_20251004134500)
}

// seededRoles are the roles every deployment starts with.
var seededRoles = []models.Role{
	{Name: "Admin", Description: "Hospital administrators with full access"},
	{Name: "Doctor", Description: "Clinical staff with a doctor profile"},
	{Name: "Patient", Description: "Patients with a patient profile"},
}

// up_20251004134500 seeds the default roles
func up_20251004134500(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding default roles...")
	for _, role := range seededRoles {
		role.ID = bunx.NewUUIDv7()
		_, err := db.NewInsert().
			Model(&role).
			On("CONFLICT (name) DO NOTHING"). // Idempotent
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down_20251004134500(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing default roles...")
	names := make([]string, 0, len(seededRoles))
	for _, role := range seededRoles {
		names = append(names, role.Name)
	}
	if _, err := db.NewDelete().
		Model((*models.Role)(nil)).
		Where("name IN (?)", bun.In(names)).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove default roles: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
