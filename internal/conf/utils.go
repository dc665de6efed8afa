// conf/utils.go various util functions for configuration package
package conf

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/logger"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory, ~/.config/evened and /etc/evened. When one of them
// holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}

	configPaths := []string{
		".",
		filepath.Join(homeDir, ".config", "evened"),
		"/etc/evened",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// RunningInContainer checks if the program is running inside a container.
func RunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/run/.containerenv"); err == nil {
		return true
	}
	if containerEnv, exists := os.LookupEnv("container"); exists && containerEnv != "" {
		return true
	}

	file, err := os.Open("/proc/self/cgroup")
	if err != nil {
		return false
	}
	defer func() {
		if err := file.Close(); err != nil {
			GetLogger().Warn("failed to close /proc/self/cgroup", logger.Error(err))
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "docker") || strings.Contains(line, "podman") {
			return true
		}
	}
	return false
}
