package app

import (
	"strings"

	"github.com/charlesng35/teamdash/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server and app
// settings. The level defaults to info.
func ConfigureLogging(cfg *Config) error {
	level := "info"
	environment := EnvironmentProduction
	if cfg != nil {
		if l := strings.TrimSpace(cfg.Server.LogLevel); l != "" {
			level = l
		}
		if !cfg.App.IsProduction() {
			environment = EnvironmentDevelopment
		}
	}
	return logger.InitWithOptions(logger.Options{Level: level, Environment: environment})
}
