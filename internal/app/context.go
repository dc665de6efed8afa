// Package app holds the runtime state shared by the commands: settings,
// logging, telemetry and the data loader built from them.
package app

import (
	"time"

	"github.com/villedieurio/evened-web/internal/buildinfo"
	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/datasource"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/loader"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability"
	"github.com/villedieurio/evened-web/internal/telemetry"
)

// flushTimeout bounds how long Close waits for queued Sentry events.
const flushTimeout = 2 * time.Second

// Context holds the overall application state. It is filled by Setup before
// any command runs.
type Context struct {
	BuildInfo *buildinfo.Context
	Settings  *conf.Settings
	Logger    logger.Logger
	// Metrics is nil unless telemetry is enabled.
	Metrics *observability.Metrics

	central *logger.CentralLogger
}

// NewContext returns an empty context carrying build metadata.
func NewContext(info *buildinfo.Context) *Context {
	return &Context{BuildInfo: info, Logger: logger.NewNopLogger()}
}

// Initialize loads configuration from configFile, or the default search
// paths when it is empty, and sets everything up from it.
func (c *Context) Initialize(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	return c.Setup(settings)
}

// Setup installs settings and builds logging, Sentry and metrics from them.
func (c *Context) Setup(settings *conf.Settings) error {
	settings.Version = c.BuildInfo.Version()
	settings.BuildDate = c.BuildInfo.BuildDate()
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(central)

	c.Settings = settings
	c.central = central
	c.Logger = central.Module("evened")

	if err := telemetry.InitSentry(settings, c.Logger); err != nil {
		// reporting is optional; the dashboard works without it
		c.Logger.Warn("sentry initialization failed", logger.Error(err))
	}

	if settings.Telemetry.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "init_metrics").
				Build()
		}
		c.Metrics = m
	}

	c.Logger.Debug("runtime initialized",
		logger.String("version", settings.Version),
		logger.String("source_type", settings.Source.Type),
		logger.Bool("telemetry", settings.Telemetry.Enabled))
	return nil
}

// NewLoader builds the configured data source and a loader over it.
func (c *Context) NewLoader(opts ...loader.Option) (*loader.Loader, error) {
	if c.Settings == nil {
		return nil, errors.Newf("runtime not initialized").
			Component("app").
			Category(errors.CategoryState).
			Build()
	}

	recorder := c.Metrics.Recorder()
	src, err := datasource.New(&c.Settings.Source,
		datasource.WithLogger(c.Logger),
		datasource.WithRecorder(recorder))
	if err != nil {
		return nil, err
	}

	base := []loader.Option{
		loader.WithLogger(c.Logger),
		loader.WithRecorder(recorder),
		loader.WithTimeout(c.Settings.Source.Timeout),
	}
	return loader.New(src, c.Settings.Source.FeedPath, append(base, opts...)...), nil
}

// Close flushes telemetry and log output.
func (c *Context) Close() error {
	telemetry.Flush(flushTimeout)
	if c.central == nil {
		return nil
	}
	return c.central.Close()
}
