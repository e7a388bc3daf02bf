package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is checks across the pipeline.
var (
	ErrConfig    = errors.New("invalid query configuration")
	ErrTransport = errors.New("upstream fetch failed")
	ErrDataShape = errors.New("unexpected record shape")
)

// ConfigError reports a malformed or invalid query descriptor. It is raised
// before any network call and its message names the violated rule.
type ConfigError struct {
	Rule string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid query configuration: %s", e.Rule)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfigError creates a ConfigError for the named rule violation.
func NewConfigError(format string, args ...any) error {
	return &ConfigError{Rule: fmt.Sprintf(format, args...)}
}

// TransportError wraps a single upstream fetch failure with a user-facing
// summary. The original cause is preserved for errors.Is/As.
type TransportError struct {
	Summary string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return e.Summary
	}
	return fmt.Sprintf("%s: %v", e.Summary, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Is reports ErrTransport so callers can classify without unwrapping the cause.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NewTransportError wraps cause with a summary of the failed operation.
func NewTransportError(cause error, format string, args ...any) error {
	return &TransportError{Summary: fmt.Sprintf(format, args...), Cause: cause}
}

// DataShapeError reports a required attribute missing from a fetched record.
// The record's identity cannot be recovered, so the run fails rather than
// silently skipping the record.
type DataShapeError struct {
	EntityType string
	Attribute  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("record of type %q is missing required attribute %q", e.EntityType, e.Attribute)
}

func (e *DataShapeError) Unwrap() error { return ErrDataShape }
