package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. Team is
// listed before its children so their ON DELETE CASCADE constraints are known
// when the child tables are created.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamRole{},
		&models.Project{},
		&models.TeamInvitation{},
		&models.SystemSetting{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
