package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/cmdutil"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/bootstrap"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/migrations"
)

// withMigrator opens the configured database and hands fn a migrator over the
// embedded migrations. The connection is closed when fn returns.
func withMigrator(fn func(ctx context.Context, m *migrate.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		db, err := bunx.NewDB(ctx, cfg.DatabaseURL, bunx.Options{MaxOpenConns: 1})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		return fn(ctx, migrate.NewMigrator(db, migrations.Migrations))
	}
}

// locked runs fn while holding the migration lock.
func locked(fn func(ctx context.Context, m *migrate.Migrator) error) func(ctx context.Context, m *migrate.Migrator) error {
	return func(ctx context.Context, m *migrate.Migrator) error {
		if err := m.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := m.Unlock(ctx); err != nil {
				log.Printf("WARNING: failed to release migration lock: %v", err)
			}
		}()
		return fn(ctx, m)
	}
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the schema of the account, client and revocation tables.`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration bookkeeping tables. Run once before the first migrate.`,
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		log.Printf("Migration tables ready")
		return nil
	}),
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies every pending migration while holding the migration lock.`,
	RunE: withMigrator(locked(func(ctx context.Context, m *migrate.Migrator) error {
		group, err := m.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if group.IsZero() {
			log.Printf("Schema is up to date")
			return nil
		}
		log.Printf("Applied migration group %s", group)
		return nil
	})),
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
		ms, err := m.MigrationsWithStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		log.Printf("Applied: %s", ms.Applied())
		log.Printf("Pending: %s", ms.Unapplied())
		return nil
	}),
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	RunE: withMigrator(locked(func(ctx context.Context, m *migrate.Migrator) error {
		group, err := m.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if group.IsZero() {
			log.Printf("Nothing to roll back")
			return nil
		}
		log.Printf("Rolled back migration group %s", group)
		return nil
	})),
}

var dbLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manually acquire migration lock",
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
		if err := m.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		log.Printf("Migration lock held; release it with 'db unlock'")
		return nil
	}),
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Releases the migration lock left behind by a crashed migrate or rollback.`,
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
		if err := m.Unlock(ctx); err != nil {
			return fmt.Errorf("failed to release migration lock: %w", err)
		}
		log.Printf("Migration lock released")
		return nil
	}),
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed default roles, the admin user and the OAuth client",
	Long:  `Creates whatever bootstrap data is missing. Existing rows are left untouched, so it is safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stack, err := cmdutil.NewStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close()

		report, err := bootstrap.Run(ctx, stack.BootstrapDependencies(), cfg.Bootstrap)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		log.Printf("Roles created: %v", report.RolesCreated)
		log.Printf("Admin user created: %t", report.AdminCreated)
		log.Printf("Client created: %t", report.ClientCreated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbStatusCmd, dbRollbackCmd, dbLockCmd, dbUnlockCmd, dbSeedCmd)
}
