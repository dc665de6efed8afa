// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/villedieurio/evened-web/internal/logger"
)

// Default values shared with flag definitions in cmd.
const (
	DefaultSourceType    = "dir"
	DefaultSourcePath    = "./data"
	DefaultFeedPath      = "feed.json"
	DefaultSourceTimeout = 15 * time.Second
	DefaultPort          = "8080"
	DefaultTopSpecies    = 12
	DefaultSpeciesMetric = "count"
	DefaultFeedSort      = "newest"
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "Evened")

	v.SetDefault("source.type", DefaultSourceType)
	v.SetDefault("source.path", DefaultSourcePath)
	v.SetDefault("source.baseurl", "")
	v.SetDefault("source.feedpath", DefaultFeedPath)
	v.SetDefault("source.timeout", DefaultSourceTimeout)
	v.SetDefault("source.ratelimit", 0)
	v.SetDefault("source.useragent", "evened-web")

	v.SetDefault("webserver.port", DefaultPort)
	v.SetDefault("webserver.debug", false)

	v.SetDefault("dashboard.topspecies", DefaultTopSpecies)
	v.SetDefault("dashboard.speciesmetric", DefaultSpeciesMetric)
	v.SetDefault("dashboard.feedsort", DefaultFeedSort)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.debug", false)
}
