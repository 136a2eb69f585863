package app

import "github.com/akovalyov/currex/pkg/logger"

// ConfigureLogging initialises the global logger with the configured level.
func ConfigureLogging(level string) error {
	return logger.Init(level)
}
