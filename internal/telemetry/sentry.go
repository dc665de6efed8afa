// Package telemetry wires opt-in Sentry error reporting.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/villedieurio/evened-web/internal/conf"
	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
)

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK and installs the errors package
// reporter. It does nothing unless sentry.enabled is set.
func InitSentry(settings *conf.Settings, log logger.Logger) error {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Module("telemetry")

	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Debug:            settings.Sentry.Debug,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("evened-web@%s", settings.Version),
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("container", fmt.Sprintf("%t", conf.RunningInContainer()))
		scope.SetContext("application", map[string]any{
			"name":    settings.Main.Name,
			"version": settings.Version,
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("version", settings.Version))
	return nil
}

// beforeSend strips host identifying data from every event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// Flush waits up to timeout for queued events. No-op when Sentry is off.
func Flush(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
