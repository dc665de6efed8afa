package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/villedieurio/evened-web/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithDefaults(t *testing.T) {
	settings, err := LoadWith(viper.New(), writeConfig(t, "main:\n  name: Test\n"))
	require.NoError(t, err)

	assert.Equal(t, "Test", settings.Main.Name)
	assert.Equal(t, SourceTypeDir, settings.Source.Type)
	assert.Equal(t, DefaultSourcePath, settings.Source.Path)
	assert.Equal(t, DefaultFeedPath, settings.Source.FeedPath)
	assert.Equal(t, 15*time.Second, settings.Source.Timeout)
	assert.Equal(t, DefaultPort, settings.WebServer.Port)
	assert.Equal(t, DefaultTopSpecies, settings.Dashboard.TopSpecies)
	assert.Equal(t, "count", settings.Dashboard.SpeciesMetric)
	assert.Equal(t, "newest", settings.Dashboard.FeedSort)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.False(t, settings.Sentry.Enabled)
}

func TestLoadWithFileValues(t *testing.T) {
	path := writeConfig(t, `
source:
  type: http
  baseurl: https://data.example.org/evened/
  timeout: 3s
  ratelimit: 2.5
webserver:
  port: "9090"
dashboard:
  topspecies: 5
  speciesmetric: duration
logging:
  module_levels:
    loader: debug
`)
	settings, err := LoadWith(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, SourceTypeHTTP, settings.Source.Type)
	assert.Equal(t, "https://data.example.org/evened/", settings.Source.BaseURL)
	assert.Equal(t, 3*time.Second, settings.Source.Timeout)
	assert.InDelta(t, 2.5, settings.Source.RateLimit, 1e-9)
	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.Equal(t, 5, settings.Dashboard.TopSpecies)
	assert.Equal(t, "duration", settings.Dashboard.SpeciesMetric)
	assert.Equal(t, "debug", settings.Logging.ModuleLevels["loader"])
}

func TestLoadWithEnvironmentOverride(t *testing.T) {
	t.Setenv("EVENED_SOURCE_PATH", "/srv/evened")
	t.Setenv("EVENED_WEBSERVER_PORT", "8181")
	t.Setenv("EVENED_DASHBOARD_TOPSPECIES", "20")

	settings, err := LoadWith(viper.New(), writeConfig(t, "source:\n  path: ./ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/evened", settings.Source.Path)
	assert.Equal(t, "8181", settings.WebServer.Port)
	assert.Equal(t, 20, settings.Dashboard.TopSpecies)
}

func TestLoadWithInvalidSettings(t *testing.T) {
	_, err := LoadWith(viper.New(), writeConfig(t, "source:\n  type: ftp\nwebserver:\n  port: \"abc\"\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestLoadWithMissingFile(t *testing.T) {
	_, err := LoadWith(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEmbeddedDefaultsAreValid(t *testing.T) {
	v := viper.New()
	setDefaultConfig(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(DefaultConfigYAML())))

	settings := &Settings{}
	require.NoError(t, v.Unmarshal(settings))
	require.NoError(t, ValidateSettings(settings))
}

func TestDumpYAML(t *testing.T) {
	settings, err := LoadWith(viper.New(), writeConfig(t, "main:\n  name: Dump\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, DumpYAML(&buf, settings))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "source")
	assert.Contains(t, decoded, "webserver")
	assert.NotContains(t, decoded, "version")
	assert.Contains(t, buf.String(), "timeout: 15s")
	assert.Contains(t, buf.String(), "name: Dump")
}
