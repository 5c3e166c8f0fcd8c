// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names used when no override is active.
const (
	DefaultConfigDirName = ".healthstore"
	DefaultDataDirName   = ".healthstore-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "HEALTHSTORE_CONFIG_DIR"
	EnvDataDir   = "HEALTHSTORE_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// defaultDir resolves a platform default directory. On Linux the XDG
// environment variable wins, falling back to the given home-relative path.
// macOS and Windows use os.UserConfigDir (~/Library/Application Support and
// %APPDATA% respectively) for both config and data.
func defaultDir(xdgEnv string, homeFallback ...string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv(xdgEnv); xdg != "" {
			return filepath.Join(xdg, "healthstore"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		parts := append([]string{home}, homeFallback...)
		return filepath.Join(append(parts, "healthstore")...), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "healthstore"), nil
	}
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/healthstore (fallback ~/.config/healthstore)
// macOS:   ~/Library/Application Support/healthstore
// Windows: %APPDATA%/healthstore
func DefaultConfigDir() (string, error) {
	return defaultDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/healthstore (fallback ~/.local/share/healthstore)
// macOS:   ~/Library/Application Support/healthstore
// Windows: %APPDATA%/healthstore
func DefaultDataDir() (string, error) {
	return defaultDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > HEALTHSTORE_CONFIG_DIR env > DefaultConfigDir().
//
// If flag is non-empty it wins. Otherwise the HEALTHSTORE_CONFIG_DIR environment
// variable is checked. If neither is set, the platform default is returned.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > HEALTHSTORE_DATA_DIR env > DefaultDataDir().
//
// The CWD-relative default ($(CWD)/.healthstore-db) is used when no override
// is active, so a store created in a project directory stays with the data it
// serves.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	// CWD-relative default keeps the store next to its caller.
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
