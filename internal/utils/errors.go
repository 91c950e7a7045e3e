package utils

import "fmt"

// ValidationError represents a malformed individual record. Passes skip the
// record and keep going.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// InsufficientDataError aborts a whole pass because a precondition on the
// input population failed. Reason names the failed precondition.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}

// NewInsufficientDataErrorf creates an InsufficientDataError with a formatted reason.
func NewInsufficientDataErrorf(format string, args ...interface{}) error {
	return &InsufficientDataError{
		Reason: fmt.Sprintf(format, args...),
	}
}

// ConfigurationError reports a missing or invalid setting. It is only
// returned at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Message
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// NewConfigurationErrorf creates a ConfigurationError for field.
func NewConfigurationErrorf(field string, format string, args ...interface{}) error {
	return &ConfigurationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
