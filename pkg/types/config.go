// Package types defines the configuration, record model, filters, and
// standard errors for the healthstore storage system.
package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HistoricalAccessDays is the rolling window, in days, beyond which one
	// app cannot read another app's records. Zero disables the window.
	HistoricalAccessDays int `json:"historical_access_days" yaml:"historical_access_days"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrWindowNegative = errors.New("historical access window must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.HistoricalAccessDays < 0 {
		return ErrWindowNegative
	}
	return nil
}
