// Package errors provides the error definitions shared by the pkglog packages.
// It defines the three error kinds the logging core can produce, typed errors
// carrying context for each kind, and small classification helpers.
//
// # Error Kinds
//
//   - [ErrInvalidLevel]: a level value could not be parsed or is out of range
//   - [ErrInvalidArgument]: a topic, handler, retention count, template or
//     other argument was rejected
//   - [ErrIO]: a directory could not be created or a log file could not be
//     appended to, compressed or removed
//
// Each kind has a typed error ([LevelError], [ValidationError], [IOError])
// whose Is method matches the sentinel, so callers can test with either form:
//
//	if errors.Is(err, errors.ErrInvalidLevel) { ... }
//
//	var ioErr *errors.IOError
//	if errors.As(err, &ioErr) {
//	    fmt.Println(ioErr.Path)
//	}
//
// Argument and level errors are returned by the call that received the bad
// value. I/O errors are returned by the log call that triggered the write.
// Nothing in pkglog retries.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidLevel indicates an unparseable or out-of-range log level.
	ErrInvalidLevel = New("invalid log level")
	// ErrInvalidArgument indicates a rejected argument or configuration value.
	ErrInvalidArgument = New("invalid argument")
	// ErrIO indicates a failed filesystem operation.
	ErrIO = New("i/o failure")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if the cause matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// LevelError
// -----------------------------------------------------------------------------

// LevelError reports a level value that could not be accepted.
//
// Example:
//
//	err := errors.NewLevelError("verbose", "unknown level name")
//	fmt.Println(err) // "invalid log level [value=verbose]: unknown level name"
type LevelError struct {
	baseError
	Value  any
	Source string
}

// NewLevelError creates a LevelError for value with the given reason.
func NewLevelError(value any, reason string) *LevelError {
	return &LevelError{
		baseError: baseError{message: reason},
		Value:     value,
	}
}

// WithSource names where the value came from (a flag, an env var, ...).
func (e *LevelError) WithSource(source string) *LevelError {
	e.Source = source
	return e
}

// Error returns the formatted error message.
func (e *LevelError) Error() string {
	parts := []string{fmt.Sprintf("value=%v", e.Value)}
	if e.Source != "" {
		parts = append(parts, "source="+e.Source)
	}
	return fmt.Sprintf("invalid log level [%s]: %s", strings.Join(parts, ", "), e.message)
}

// Is checks if this error matches the target.
func (e *LevelError) Is(target error) bool {
	if _, ok := target.(*LevelError); ok {
		return true
	}
	if target == ErrInvalidLevel {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents a rejected argument.
//
// Example:
//
//	err := errors.NewValidationError("must be between 1 and 1000")
//	err = err.WithField("files").WithValue(0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{message: message},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "invalid argument"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("invalid argument [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidArgument {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// IOError
// -----------------------------------------------------------------------------

// IOError represents a failed filesystem operation on a log path.
//
// Example:
//
//	err := errors.NewIOError("append", "/var/log/app.2024-01-02.log", cause)
//	fmt.Println(err) // "i/o failure [op=append, path=/var/log/app.2024-01-02.log]: permission denied"
type IOError struct {
	baseError
	Op   string
	Path string
}

// NewIOError creates an IOError for op on path caused by cause.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{
		baseError: baseError{message: op + " failed", cause: cause},
		Op:        op,
		Path:      path,
	}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	prefix := fmt.Sprintf("i/o failure [op=%s, path=%s]", e.Op, e.Path)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix + ": " + e.message
}

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	if target == ErrIO {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true for errors caused by bad input, whose message is
// meant for whoever supplied the input. I/O and unknown errors return false.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrInvalidLevel) || Is(err, ErrInvalidArgument)
}

// IsIO reports whether err is, or wraps, an I/O failure.
func IsIO(err error) bool {
	return err != nil && Is(err, ErrIO)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load config")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to open %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
