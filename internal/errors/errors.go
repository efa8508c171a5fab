// Package errors consolidates error definitions for the featurestore.
//
// It provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - A ValidationErrors collector for multi-field failures
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrEntityNotFound  = errors.New("entity not found")
	ErrFeatureNotFound = errors.New("feature vector not found")

	// Ingestion errors
	ErrEmptyBatch  = errors.New("empty batch")
	ErrBatchFailed = errors.New("batch ingestion failed")

	// Validation errors
	ErrInvalidRecord  = errors.New("invalid record")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidVersion = errors.New("invalid version")
	ErrInvalidCursor  = errors.New("invalid query cursor")

	// Store errors
	ErrStaleSource = errors.New("feature vector source version is stale")
	ErrStoreIO     = errors.New("store I/O failure")
	ErrClosed      = errors.New("store is closed")

	// Cache errors. Cache degradation is absorbed by falling back to
	// the store and is never surfaced to callers as a failure.
	ErrCacheDegraded = errors.New("cache bookkeeping degraded")

	// Timeout errors
	ErrRecomputeTimeout = errors.New("feature recomputation timed out")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrFeatureNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidVersion) ||
		errors.Is(err, ErrInvalidCursor)
}

// IsTimeout returns true if err is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRecomputeTimeout)
}

// IsRetriable returns true if the error is potentially transient and
// worth retrying with backoff.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrStoreIO) ||
		errors.Is(err, ErrRecomputeTimeout)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewStaleSource creates a stale-source error carrying both versions.
func NewStaleSource(have, current int) error {
	return fmt.Errorf("source version %d behind current %d: %w", have, current, ErrStaleSource)
}

// NewStoreIO wraps a low-level storage failure.
func NewStoreIO(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrStoreIO)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
