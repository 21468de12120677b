package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered registry applied by "authapi db migrate".
var Migrations = migrate.NewMigrations()
