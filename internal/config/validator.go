package config

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/pkglog/internal/console"
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/provider"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "files")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Is reports whether target is errors.ErrInvalidArgument.
func (e ValidationError) Is(target error) bool {
	return target == errors.ErrInvalidArgument
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports whether target is errors.ErrInvalidArgument.
func (e ValidationErrors) Is(target error) bool {
	return len(e) > 0 && target == errors.ErrInvalidArgument
}

// Fields returns the keys that failed validation, in order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !c.Level.Valid() {
		errs = append(errs, ValidationError{
			Field:   KeyLevel,
			Value:   int(c.Level),
			Message: "must be between 0 (ALL) and 7 (OFF)",
		})
	}

	if _, err := format.Compile(c.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyFormat,
			Value:   c.Format,
			Message: "must be a non-empty template with closed placeholders",
		})
	}

	if strings.TrimSpace(c.Dir) == "" {
		errs = append(errs, ValidationError{
			Field:   KeyDir,
			Value:   c.Dir,
			Message: "must not be empty",
		})
	}

	if err := logging.ValidateFilename(c.File); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyFile,
			Value:   c.File,
			Message: "must be a non-empty file name without path separators",
		})
	}

	if err := logging.ValidateFiles(c.Files); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyFiles,
			Value:   c.Files,
			Message: fmt.Sprintf("must be between %d and %d", logging.MinFiles, logging.MaxFiles),
		})
	}

	if _, err := console.ParseColorMode(c.Color); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyColor,
			Value:   c.Color,
			Message: "must be one of: auto, always, never",
		})
	}

	if err := provider.ValidateDebugTopics(c.Debug); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyDebug,
			Value:   c.Debug,
			Message: "must be a comma separated list of topic globs",
		})
	}

	return errs
}
