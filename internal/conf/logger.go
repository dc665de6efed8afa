package conf

import "github.com/villedieurio/evened-web/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger on each call because configuration loads before SetGlobal runs.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
