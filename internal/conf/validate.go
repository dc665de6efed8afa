// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/villedieurio/evened-web/internal/logger"
)

// Source types
const (
	SourceTypeDir  = "dir"
	SourceTypeHTTP = "http"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		validateSourceSettings,
		validateWebServerSettings,
		validateDashboardSettings,
		validateLoggingSettings,
		validateSentrySettings,
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSourceSettings(settings *Settings) error {
	s := &settings.Source
	switch s.Type {
	case SourceTypeDir:
		if s.Path == "" {
			return fmt.Errorf("source.path is required for the dir source")
		}
	case SourceTypeHTTP:
		if s.BaseURL == "" {
			return fmt.Errorf("source.baseurl is required for the http source")
		}
		u, err := url.Parse(s.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source.baseurl must be an absolute http(s) URL, got %q", s.BaseURL)
		}
	default:
		return fmt.Errorf("source.type must be %q or %q, got %q", SourceTypeDir, SourceTypeHTTP, s.Type)
	}

	if s.FeedPath == "" {
		return fmt.Errorf("source.feedpath is required")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", s.Timeout)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("source.ratelimit must not be negative, got %g", s.RateLimit)
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if err := validatePort(settings.WebServer.Port); err != nil {
		return fmt.Errorf("webserver.port: %w", err)
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a number between 1 and 65535, got %q", port)
	}
	return nil
}

func validateDashboardSettings(settings *Settings) error {
	d := &settings.Dashboard
	if d.TopSpecies < 1 {
		return fmt.Errorf("dashboard.topspecies must be at least 1, got %d", d.TopSpecies)
	}
	switch d.SpeciesMetric {
	case "count", "duration":
	default:
		return fmt.Errorf("dashboard.speciesmetric must be count or duration, got %q", d.SpeciesMetric)
	}
	switch d.FeedSort {
	case "newest", "duration", "species", "detections":
	default:
		return fmt.Errorf("dashboard.feedsort must be newest, duration, species or detections, got %q", d.FeedSort)
	}
	return nil
}

func validateLoggingSettings(settings *Settings) error {
	l := &settings.Logging
	var errs []string
	if l.DefaultLevel != "" {
		if err := validateLogLevel(l.DefaultLevel); err != nil {
			errs = append(errs, "logging.default_level: "+err.Error())
		}
	}
	for module, level := range l.ModuleLevels {
		if err := validateLogLevel(level); err != nil {
			errs = append(errs, fmt.Sprintf("logging.module_levels.%s: %v", module, err))
		}
	}
	if l.FileOutput != nil && l.FileOutput.Enabled && l.FileOutput.Path == "" {
		errs = append(errs, "logging.file_output.path is required when file output is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogLevel(level string) error {
	switch logger.LogLevel(strings.ToLower(level)) {
	case logger.LogLevelTrace, logger.LogLevelDebug, logger.LogLevelInfo, logger.LogLevelWarn, logger.LogLevelError:
		return nil
	}
	return fmt.Errorf("unknown log level %q", level)
}

func validateSentrySettings(settings *Settings) error {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}
