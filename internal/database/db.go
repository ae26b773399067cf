package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite database path when Driver == sqlite
	DSN      string // Optional DSN override
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		return openSQLite(cfg)
	case "postgres", "postgresql":
		return openPostgres(cfg)
	case "mysql":
		return openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ping verifies the database connection is alive.
func Ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return errors.New("database: connection is nil")
	}
	if err := p.PingContext(ctx); err != nil {
		return fmt.Errorf("database: ping: %w", err)
	}
	return nil
}

// PingGorm resolves the underlying connection pool of db and pings it.
func PingGorm(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database: connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: resolve pool: %w", err)
	}
	return Ping(ctx, sqlDB)
}
