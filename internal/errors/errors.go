// Package errors defines the error taxonomy of the autopepsirf pipelines.
//
// Three kinds of failure exist:
//   - ConfigError: contradictory or missing parameters, detected before any stage runs
//   - IOError: a snapshot, source table or sample-name file could not be read or written
//   - DelegateError: an external pepsirf or plotting action failed
//
// Each kind matches a sentinel, so callers classify with the standard helpers:
//
//	if errors.Is(err, errors.ErrConfiguration) { ... }
//
//	var derr *errors.DelegateError
//	if errors.As(err, &derr) { log(derr.Action) }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors, one per failure kind.
var (
	// ErrConfiguration indicates mutually exclusive or missing parameters.
	ErrConfiguration = New("configuration error")
	// ErrIO indicates a file or directory could not be read or written.
	ErrIO = New("io error")
	// ErrDelegate indicates an external action failed.
	ErrDelegate = New("delegate failure")
)

// ConfigError reports an invalid parameter combination.
type ConfigError struct {
	Param   string
	message string
}

// NewConfigError creates a ConfigError for the named parameter.
func NewConfigError(param, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Param == "" {
		return "configuration error: " + e.message
	}
	return fmt.Sprintf("configuration error [%s]: %s", e.Param, e.message)
}

// Is matches ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// IOError reports a failed read or write of Path.
type IOError struct {
	Op    string
	Path  string
	cause error
}

// NewIOError wraps cause with the operation and path that failed.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{Op: op, Path: path, cause: cause}
}

func (e *IOError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.cause)
	}
	return fmt.Sprintf("io error: %s %s", e.Op, e.Path)
}

func (e *IOError) Unwrap() error { return e.cause }

// Is matches ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// DelegateError reports a failed external action. The cause is kept
// verbatim so callers see exactly what the tool reported.
type DelegateError struct {
	Action string
	cause  error
}

// NewDelegateError wraps the failure of the named action.
func NewDelegateError(action string, cause error) *DelegateError {
	return &DelegateError{Action: action, cause: cause}
}

func (e *DelegateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("delegate %s failed: %v", e.Action, e.cause)
	}
	return fmt.Sprintf("delegate %s failed", e.Action)
}

func (e *DelegateError) Unwrap() error { return e.cause }

// Is matches ErrDelegate.
func (e *DelegateError) Is(target error) bool {
	return target == ErrDelegate
}

// IsConfiguration reports whether err is, or wraps, a configuration error.
func IsConfiguration(err error) bool { return Is(err, ErrConfiguration) }

// IsIO reports whether err is, or wraps, an io error.
func IsIO(err error) bool { return Is(err, ErrIO) }

// IsDelegate reports whether err is, or wraps, a delegate failure.
func IsDelegate(err error) bool { return Is(err, ErrDelegate) }
