package migrations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
)

func TestMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", bunx.Options{})
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, IsSQLite(db))
	assert.False(t, IsPostgreSQL(db))

	migrator := migrate.NewMigrator(db, Migrations)
	require.NoError(t, migrator.Init(ctx))

	group, err := migrator.Migrate(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	var roles []models.Role
	require.NoError(t, db.NewSelect().Model(&roles).Order("name ASC").Scan(ctx))
	require.Len(t, roles, 3)
	assert.Equal(t, "Admin", roles[0].Name)
	assert.Equal(t, "Doctor", roles[1].Name)
	assert.Equal(t, "Patient", roles[2].Name)

	for _, table := range []string{"users", "user_roles", "user_claims", "oauth_clients", "revoked_jti", "doctors", "patients"} {
		_, err := db.NewSelect().Table(table).Limit(1).Exec(ctx)
		assert.NoError(t, err, "table %s", table)
	}

	// Second run has nothing left to apply
	group, err = migrator.Migrate(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	// Rolling everything back drops the tables
	for {
		group, err := migrator.Rollback(ctx)
		require.NoError(t, err)
		if group.IsZero() {
			break
		}
	}
	_, err = db.NewSelect().Table("users").Limit(1).Exec(ctx)
	assert.Error(t, err)
}
