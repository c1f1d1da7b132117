package app

import (
	"strings"

	"github.com/endorhq/endor/pkg/logger"
)

// ConfigureLogging initialises the global logger from ServerConfig, defaulting to info.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{Level: level, Format: cfg.LogFormat})
}
