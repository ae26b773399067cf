package maintenance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/models"
	"github.com/charlesng35/teamdash/pkg/logger"
	"github.com/charlesng35/teamdash/pkg/metrics"
	"github.com/charlesng35/teamdash/pkg/validator"
)

// ErrUnreadableValue marks a stored value that neither decrypts under a known
// key nor looks like legacy plaintext. Such rows are left untouched and
// counted as unreadable rather than failed.
var ErrUnreadableValue = errors.New("maintenance: stored value is unreadable")

// Resealer is the subset of fieldcrypt.Cipher used by the sweep.
type Resealer interface {
	Seal(plaintext string) (string, error)
	Inspect(stored string) (string, fieldcrypt.State)
}

// ReencryptStats summarises one sweep.
type ReencryptStats struct {
	Scanned    int
	Migrated   int
	Skipped    int
	Unreadable int // no key opens the value and it is not an email address
	Failed     int
}

// ReencryptInvitations walks TeamInvitation in id order and seals every email
// that is legacy plaintext or was sealed under a retired secret. Values already
// sealed under the current key are not rewritten. Per-row failures are
// collected and the sweep continues.
func ReencryptInvitations(ctx context.Context, db *gorm.DB, cipher Resealer, batchSize int) (ReencryptStats, error) {
	var stats ReencryptStats
	if db == nil || cipher == nil {
		return stats, errors.New("reencrypt invitations: db and cipher are required")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := logger.WithModule("maintenance")
	var (
		errs   error
		lastID uint
	)

	for {
		var batch []models.TeamInvitation
		if err := db.WithContext(ctx).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Find(&batch).Error; err != nil {
			return stats, multierr.Append(errs, fmt.Errorf("reencrypt invitations: load batch: %w", err))
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			row := &batch[i]
			lastID = row.ID
			stats.Scanned++

			if err := reencryptRow(ctx, db, cipher, row); err != nil {
				switch {
				case errors.Is(err, errAlreadyCurrent), errors.Is(err, errRowChanged):
					stats.Skipped++
					metrics.ReencryptRows.WithLabelValues("skipped").Inc()
					continue
				case errors.Is(err, ErrUnreadableValue):
					stats.Unreadable++
					metrics.ReencryptRows.WithLabelValues("unreadable").Inc()
					log.Debug("invitation email is unreadable", zap.Uint("invitation_id", row.ID))
					continue
				}
				stats.Failed++
				metrics.ReencryptRows.WithLabelValues("failed").Inc()
				errs = multierr.Append(errs, fmt.Errorf("invitation %d: %w", row.ID, err))
				continue
			}
			stats.Migrated++
			metrics.ReencryptRows.WithLabelValues("migrated").Inc()
		}

		if len(batch) < batchSize {
			break
		}
	}

	if stats.Migrated > 0 || stats.Failed > 0 {
		log.Info("invitation re-encryption sweep",
			zap.Int("scanned", stats.Scanned),
			zap.Int("migrated", stats.Migrated),
			zap.Int("unreadable", stats.Unreadable),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, errs
}

var (
	errAlreadyCurrent = errors.New("already sealed under current key")
	errRowChanged     = errors.New("row changed since it was read")
)

func reencryptRow(ctx context.Context, db *gorm.DB, cipher Resealer, row *models.TeamInvitation) error {
	plaintext, state := cipher.Inspect(row.StoredEmail)
	switch state {
	case fieldcrypt.StateCurrent:
		return errAlreadyCurrent
	case fieldcrypt.StateRaw:
		// Ciphertext from an unknown key would be sealed as if it were the
		// address; only values that parse as an email are treated as legacy.
		if !validator.IsEmail(plaintext) {
			return ErrUnreadableValue
		}
	}

	sealed, err := cipher.Seal(plaintext)
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).
		Model(&models.TeamInvitation{}).
		Where("id = ? AND email = ?", row.ID, row.StoredEmail).
		UpdateColumn("email", sealed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errRowChanged
	}
	return nil
}
