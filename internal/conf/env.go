// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EVENED_SOURCE_PATH.
const EnvPrefix = "EVENED"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // viper config key
	EnvVar    string             // environment variable name
	Validate  func(string) error // optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "EVENED_DEBUG", validateEnvBool},

		// Data source
		{"source.type", "EVENED_SOURCE_TYPE", validateEnvSourceType},
		{"source.path", "EVENED_SOURCE_PATH", validateEnvPath},
		{"source.baseurl", "EVENED_SOURCE_BASEURL", validateEnvURL},
		{"source.feedpath", "EVENED_SOURCE_FEEDPATH", nil},
		{"source.timeout", "EVENED_SOURCE_TIMEOUT", validateEnvDuration},
		{"source.ratelimit", "EVENED_SOURCE_RATELIMIT", validateEnvRate},

		// Web server
		{"webserver.port", "EVENED_WEBSERVER_PORT", validateEnvPort},
		{"webserver.debug", "EVENED_WEBSERVER_DEBUG", validateEnvBool},

		// Logging
		{"logging.default_level", "EVENED_LOG_LEVEL", validateEnvLogLevel},

		// Telemetry
		{"telemetry.enabled", "EVENED_TELEMETRY_ENABLED", validateEnvBool},
		{"sentry.enabled", "EVENED_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "EVENED_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every variable and validates the ones that are set.
// Invalid values are reported but still bound; ValidateSettings rejects
// them later with a field-level message.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// configureEnvironmentVariables enables EVENED_ overrides for every key
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvSourceType(value string) error {
	switch value {
	case SourceTypeDir, SourceTypeHTTP:
		return nil
	}
	return fmt.Errorf("must be %q or %q", SourceTypeDir, SourceTypeHTTP)
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 15s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvRate(value string) error {
	r, err := strconv.ParseFloat(value, 64)
	if err != nil || r < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}

func validateEnvPort(value string) error {
	return validatePort(value)
}

func validateEnvLogLevel(value string) error {
	return validateLogLevel(value)
}
