package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/teamdash/internal/models"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, model := range []any{
		&models.User{},
		&models.Team{},
		&models.TeamRole{},
		&models.Project{},
		&models.TeamInvitation{},
		&models.SystemSetting{},
	} {
		require.True(t, migrator.HasTable(model), "missing table for %T", model)
	}

	// The invitation table name is not pluralised.
	require.True(t, migrator.HasTable("TeamInvitation"))
	require.True(t, migrator.HasColumn(&models.TeamInvitation{}, "email"))
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}

func TestAutoMigrateNilDB(t *testing.T) {
	require.Error(t, AutoMigrate(nil))
}
