package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/models"
)

// FieldKeyCanarySetting holds a value sealed under the field encryption key,
// used to notice when the configured secret changes between restarts.
const FieldKeyCanarySetting = "fieldcrypt.canary"

const canaryPlaintext = "teamdash-field-key-canary"

// ErrFieldKeyMismatch means the stored canary was sealed under a secret that is
// neither the current one nor a configured previous secret.
var ErrFieldKeyMismatch = errors.New("system settings: field encryption secret changed without rotation")

// CanaryCipher is the subset of fieldcrypt.Cipher used by the canary check.
type CanaryCipher interface {
	Seal(plaintext string) (string, error)
	Inspect(stored string) (string, fieldcrypt.State)
}

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// EnsureFieldKeyCanary records a canary sealed under the current key on first
// start. Later starts verify the canary still opens: a canary sealed under a
// previous secret is re-sealed, an unreadable one yields ErrFieldKeyMismatch.
func EnsureFieldKeyCanary(ctx context.Context, db *gorm.DB, cipher CanaryCipher) (fieldcrypt.State, error) {
	if cipher == nil {
		return fieldcrypt.StateRaw, errors.New("system settings: cipher is nil")
	}

	current, err := GetSystemSetting(ctx, db, FieldKeyCanarySetting)
	if err != nil {
		return fieldcrypt.StateRaw, err
	}

	if current != "" {
		plaintext, state := cipher.Inspect(current)
		switch {
		case state == fieldcrypt.StateCurrent && plaintext == canaryPlaintext:
			return state, nil
		case state == fieldcrypt.StateRaw || plaintext != canaryPlaintext:
			return fieldcrypt.StateRaw, ErrFieldKeyMismatch
		}
	}

	sealed, err := cipher.Seal(canaryPlaintext)
	if err != nil {
		return fieldcrypt.StateRaw, fmt.Errorf("system settings: seal canary: %w", err)
	}
	if err := UpsertSystemSetting(ctx, db, FieldKeyCanarySetting, sealed); err != nil {
		return fieldcrypt.StateRaw, err
	}

	if current == "" {
		return fieldcrypt.StateCurrent, nil
	}
	return fieldcrypt.StateRetired, nil
}
