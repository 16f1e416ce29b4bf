package errors

import (
	"errors"
	"fmt"
)

// Error types for the detection pipeline
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeMissingInput ErrorType = "missing_input"
	ErrorTypeSchema       ErrorType = "schema"
	ErrorTypeUntrained    ErrorType = "untrained"
	ErrorTypePersistence  ErrorType = "persistence"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// NewMissingInputError reports an absent source file. The loader recovers
// from it locally by substituting an empty table.
func NewMissingInputError(source, path string) *AppError {
	return &AppError{
		Type:       ErrorTypeMissingInput,
		Code:       "MISSING_INPUT",
		Message:    fmt.Sprintf("%s log not found at %s", source, path),
		Retryable:  false,
		StatusCode: 404,
		Details:    map[string]interface{}{"source": source, "path": path},
	}
}

// NewSchemaAmbiguityError reports that none of the accepted column aliases
// was present. Recovered locally via a sentinel value.
func NewSchemaAmbiguityError(source, field string, candidates []string) *AppError {
	return &AppError{
		Type:       ErrorTypeSchema,
		Code:       "SCHEMA_AMBIGUITY",
		Message:    fmt.Sprintf("%s log has no %s column (tried %v)", source, field, candidates),
		Retryable:  false,
		StatusCode: 422,
		Details:    map[string]interface{}{"source": source, "field": field},
	}
}

func NewUntrainedStateError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUntrained,
		Code:       "UNTRAINED_STATE",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewPersistenceError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypePersistence,
		Code:       "PERSISTENCE_ERROR",
		Message:    message,
		Retryable:  false,
		StatusCode: 500,
	}
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error. Errors without one
// map to 500.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return 500
}

// As is errors.As narrowed to *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
