package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/models"
	"github.com/charlesng35/teamdash/pkg/crypto"
)

var canaryParams = crypto.PBKDF2Parameters{Iterations: 1000, KeyLength: 32}

func TestGetAndUpsertSystemSetting(t *testing.T) {
	db := openSystemSettingTestDB(t)

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value1"))

	retrieved, err := GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value1", retrieved)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value2"))

	retrieved, err = GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value2", retrieved)

	require.Error(t, UpsertSystemSetting(context.Background(), db, "  ", "value"))
}

func TestEnsureFieldKeyCanary(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()

	cipher := newCanaryCipher(t, "current")

	state, err := EnsureFieldKeyCanary(ctx, db, cipher)
	require.NoError(t, err)
	require.Equal(t, fieldcrypt.StateCurrent, state)

	stored, err := GetSystemSetting(ctx, db, FieldKeyCanarySetting)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	state, err = EnsureFieldKeyCanary(ctx, db, cipher)
	require.NoError(t, err)
	require.Equal(t, fieldcrypt.StateCurrent, state)

	again, err := GetSystemSetting(ctx, db, FieldKeyCanarySetting)
	require.NoError(t, err)
	require.Equal(t, stored, again)
}

func TestEnsureFieldKeyCanaryAfterRotation(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()

	_, err := EnsureFieldKeyCanary(ctx, db, newCanaryCipher(t, "old"))
	require.NoError(t, err)

	rotated := newCanaryCipher(t, "new", fieldcrypt.WithPreviousSecrets("old"))
	state, err := EnsureFieldKeyCanary(ctx, db, rotated)
	require.NoError(t, err)
	require.Equal(t, fieldcrypt.StateRetired, state)

	state, err = EnsureFieldKeyCanary(ctx, db, newCanaryCipher(t, "new"))
	require.NoError(t, err)
	require.Equal(t, fieldcrypt.StateCurrent, state)
}

func TestEnsureFieldKeyCanaryDetectsUnknownSecret(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()

	_, err := EnsureFieldKeyCanary(ctx, db, newCanaryCipher(t, "production"))
	require.NoError(t, err)

	_, err = EnsureFieldKeyCanary(ctx, db, newCanaryCipher(t, "development"))
	require.ErrorIs(t, err, ErrFieldKeyMismatch)
}

func TestEnsureFieldKeyCanaryNilCipher(t *testing.T) {
	db := openSystemSettingTestDB(t)

	_, err := EnsureFieldKeyCanary(context.Background(), db, nil)
	require.Error(t, err)
}

func newCanaryCipher(t *testing.T, secret string, opts ...fieldcrypt.Option) *fieldcrypt.Cipher {
	t.Helper()

	opts = append([]fieldcrypt.Option{fieldcrypt.WithParameters(canaryParams)}, opts...)
	cipher, err := fieldcrypt.NewCipher(secret, opts...)
	require.NoError(t, err)
	return cipher
}

func openSystemSettingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))
	return db
}
