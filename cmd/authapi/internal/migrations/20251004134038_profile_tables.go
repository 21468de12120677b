package migrations

import (
	"context"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20251004134038, down_20251004134038)
}

// up_20251004134038 creates the doctor and patient profile tables linked to users
func up_20251004134038(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating doctors table...")
	if _, err := db.NewCreateTable().
		Model((*models.Doctor)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create doctors table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating patients table...")
	if _, err := db.NewCreateTable().
		Model((*models.Patient)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create patients table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

func down_20251004134038(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping profile tables...")
	if _, err := db.NewDropTable().Model((*models.Patient)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop patients table: %w", err)
	}
	if _, err := db.NewDropTable().Model((*models.Doctor)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop doctors table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
