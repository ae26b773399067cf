package app

import (
	"strings"

	"github.com/charlesng35/teamdash/internal/database"
)

// ConnectionConfig converts DatabaseConfig into database.Config, picking the
// host settings that match the selected driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var hostCfg *DBAuthConfig
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		hostCfg = &c.Postgres
	case "mysql":
		hostCfg = &c.MySQL
	}

	if hostCfg != nil {
		cfg.Host = strings.TrimSpace(hostCfg.Host)
		cfg.Port = hostCfg.Port
		cfg.Name = strings.TrimSpace(hostCfg.Database)
		cfg.User = strings.TrimSpace(hostCfg.Username)
		cfg.Password = hostCfg.Password
		cfg.Options = hostCfg.Options
	}

	return cfg
}
