// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrSymbolNotFound   = errors.New("symbol not found")
)

// ConfigError reports missing or placeholder credentials for an external
// service. It is fatal to the feature that needs the service and is never
// retried; the CLI renders setup guidance instead of a failure banner.
type ConfigError struct {
	Service string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Service, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(service, message string) *ConfigError {
	return &ConfigError{Service: service, Message: message}
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ProviderError represents a transport or remote-reported failure from the
// quote provider.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error [%d]: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// PersistenceError represents a failure of a backend operation.
type PersistenceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence error [%s]: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("persistence error [%s]: %s", e.Operation, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(operation, message string, err error) *PersistenceError {
	return &PersistenceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// ValidationError represents invalid user input, caught before any network
// call is made.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

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

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
