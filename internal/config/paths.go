// Package config loads ctxfeed settings from defaults, a YAML file and
// CTXFEED_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const dirName = ".ctxfeed"

// DefaultConfigDir returns ~/.ctxfeed.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

func inConfigDir(name string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// DefaultConfigPath returns ~/.ctxfeed/config.yaml.
func DefaultConfigPath() (string, error) { return inConfigDir("config.yaml") }

// DefaultDataPath returns the fixture store location, ~/.ctxfeed/data.db.
func DefaultDataPath() (string, error) { return inConfigDir("data.db") }

// DefaultModelsPath is where `ctxfeed init` drops an editable copy of the
// built-in model profiles.
func DefaultModelsPath() (string, error) { return inConfigDir("models.yaml") }

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	switch {
	case path == "":
		return "", nil
	case path == "~":
		return os.UserHomeDir()
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
