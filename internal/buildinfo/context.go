// Package buildinfo holds build-time metadata kept apart from user
// configuration. Values are injected through -ldflags at build time.
package buildinfo

import "fmt"

// UnknownValue stands in for metadata the build did not provide.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata. Empty values read as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version string.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// String renders the version line printed by --version.
func (c *Context) String() string {
	return fmt.Sprintf("evened %s (built %s)", c.Version(), c.BuildDate())
}
