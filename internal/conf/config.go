// Package conf loads evened settings from config.yaml, environment variables
// and command line flags.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// SourceSettings describes where the feed and session files are read from
type SourceSettings struct {
	Type      string        // "dir" reads from the local filesystem, "http" from a web server
	Path      string        // root directory for the dir source
	BaseURL   string        // base URL for the http source
	FeedPath  string        // feed document path relative to the source root
	Timeout   time.Duration // per fetch timeout
	RateLimit float64       // max http requests per second, 0 disables limiting
	UserAgent string        // User-Agent header for the http source
}

// WebServerSettings contains settings for the dashboard HTTP server
type WebServerSettings struct {
	Port  string // port to listen on
	Debug bool   // enables echo debug mode and request logging
}

// DashboardSettings holds view defaults used when a request does not set them
type DashboardSettings struct {
	TopSpecies    int    // number of species in the top species panel
	SpeciesMetric string // "count" or "duration"
	FeedSort      string // "newest", "duration", "species" or "detections"
}

// TelemetrySettings controls the prometheus metrics endpoint
type TelemetrySettings struct {
	Enabled bool // serve /metrics
}

// SentrySettings controls error reporting to Sentry (opt-in)
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	Debug       bool
}

// Settings is the root configuration struct
type Settings struct {
	Debug bool

	Main struct {
		Name string // instance name shown in the page title
	}

	Source    SourceSettings
	WebServer WebServerSettings
	Dashboard DashboardSettings
	Logging   logger.LoggingConfig
	Telemetry TelemetrySettings
	Sentry    SentrySettings

	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration into a new Settings using the global viper
// instance, which also carries any bound cobra flags. configFile may be
// empty to search the default config paths.
func Load(configFile string) (*Settings, error) {
	settings, err := LoadWith(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// LoadWith reads configuration through v. Tests pass a fresh viper.New().
func LoadWith(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryValidation).
			Context("operation", "validate_config").
			Build()
	}

	return settings, nil
}

// initViper applies defaults, environment bindings and the config file.
// Without a config file the embedded defaults are used.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	GetLogger().Debug("no config file found, using embedded defaults",
		logger.Any("search_paths", configPaths))
	return v.ReadConfig(bytes.NewReader(getDefaultConfig()))
}

// getDefaultConfig returns the embedded config.yaml.
func getDefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time; cannot fail for a valid binary
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return data
}

// DefaultConfigYAML returns the embedded default configuration.
func DefaultConfigYAML() []byte {
	return getDefaultConfig()
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DumpYAML writes the effective settings as YAML.
func DumpYAML(w io.Writer, settings *Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "dump_config").
			Build()
	}
	return enc.Close()
}
