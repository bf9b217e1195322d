// Package config manages tidydl settings and filesystem locations.
//
// Two things live here: the Paths tidydl reads from and writes to (the home
// directory searched last for a rule file, the settings file, the log file)
// and the Settings loaded from defaults, that settings file and TIDYDL_*
// environment variables. Rule files themselves are handled by package rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is used for the XDG subdirectories.
const AppName = "tidydl"

// Paths contains all the filesystem paths used by tidydl.
type Paths struct {
	// Home is the invoking user's home directory, the last place a rule file is looked for
	Home string

	// ConfigDir holds the settings file (default: $XDG_CONFIG_HOME/tidydl)
	ConfigDir string

	// StateDir holds the log file (default: $XDG_STATE_HOME/tidydl)
	StateDir string

	// SettingsFile is the optional YAML settings file
	SettingsFile string

	// LogFile is where logs are appended in addition to stderr
	LogFile string
}

// DefaultPaths returns the default paths for tidydl.
// Paths can be overridden with environment variables:
// - TIDYDL_ROOT: put settings and logs under a single directory
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = xdg.Home
	}
	if home == "" {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(xdg.ConfigHome, AppName)
	stateDir := filepath.Join(xdg.StateHome, AppName)
	if root := os.Getenv("TIDYDL_ROOT"); root != "" {
		configDir = root
		stateDir = root
	}

	return &Paths{
		Home:         home,
		ConfigDir:    configDir,
		StateDir:     stateDir,
		SettingsFile: filepath.Join(configDir, "config.yaml"),
		LogFile:      filepath.Join(stateDir, AppName+".log"),
	}, nil
}
