// Package dederr defines the typed error kinds the fuzzy deduplication
// engine can return to its callers.
package dederr

import "fmt"

// ConfigError indicates a problem with the match configuration itself:
// no usable matching columns, or an unknown winning criterion.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dedup: config error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("dedup: config error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps msg (and an optional cause) as a ConfigError.
func NewConfigError(msg string, cause error) error {
	return &ConfigError{Msg: msg, Err: cause}
}

// DataError indicates a problem with the input table: a missing required
// field, or a required value that could not be parsed with no fallback.
type DataError struct {
	Msg string
	Err error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dedup: data error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("dedup: data error: %s", e.Msg)
}

func (e *DataError) Unwrap() error { return e.Err }

// NewDataError wraps msg (and an optional cause) as a DataError.
func NewDataError(msg string, cause error) error {
	return &DataError{Msg: msg, Err: cause}
}

// ResourceError indicates the parallel worker pool could not be created.
// The engine recovers from this locally by falling back to sequential
// execution; it is never returned to a caller, only logged.
type ResourceError struct {
	Msg string
	Err error
}

func (e *ResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dedup: resource error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("dedup: resource error: %s", e.Msg)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError wraps msg (and an optional cause) as a ResourceError.
func NewResourceError(msg string, cause error) error {
	return &ResourceError{Msg: msg, Err: cause}
}
