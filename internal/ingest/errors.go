package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig matches every *ConfigError via errors.Is.
	ErrConfig = errors.New("invalid import configuration")

	// ErrIO marks a failure of the underlying file stream. It aborts the run.
	ErrIO = errors.New("import i/o failure")
)

// ConfigError reports an option that prevents an import from starting.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Option, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErr(option, format string, args ...any) *ConfigError {
	return &ConfigError{Option: option, Reason: fmt.Sprintf(format, args...)}
}

// RecordError is a per-record structural failure. It is logged and counted,
// and the run continues with the next record.
type RecordError struct {
	// Line is the 1-based physical line for delimited input, 0 otherwise.
	Line int
	// Offset is the byte offset of the element for tag-delimited input.
	Offset int64
	Reason string
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Reason)
}
