// Package errors provides structured error types for datapeek.
// All errors include a category, code, message, and warning flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryUsage    ErrorCategory = "USAGE"
	ErrCategoryIngest   ErrorCategory = "INGEST"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Usage codes
	CodeMissingFile      = "MISSING_FILE"
	CodeInvalidExtension = "INVALID_EXTENSION"
	CodeNoDataset        = "NO_DATASET"

	// Ingest codes
	CodeSizeLimit    = "SIZE_LIMIT"
	CodeIngestFailed = "INGEST_FAILED"
	CodeEmptyData    = "EMPTY_DATA"
	CodePartialData  = "PARTIAL_DATA"

	// Query codes
	CodeEvaluationFailed = "EVALUATION_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// DataPeekError is the structured error type used throughout the system.
type DataPeekError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
	Warning  bool
}

// Error returns a formatted error string.
func (e *DataPeekError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DataPeekError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DataPeekError) Is(target error) bool {
	var t *DataPeekError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DataPeekError.
func New(category ErrorCategory, code, message string) *DataPeekError {
	return &DataPeekError{
		Category: category,
		Code:     code,
		Message:  message,
		Warning:  isWarning(category, code),
	}
}

// Wrap creates a new DataPeekError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DataPeekError {
	return &DataPeekError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
		Warning:  isWarning(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DataPeekError) WithDetails(details map[string]interface{}) *DataPeekError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsWarning checks whether an error (or its chain) is a non-fatal warning.
// Warnings accompany a usable result, such as a partially recovered dataset.
func IsWarning(err error) bool {
	var de *DataPeekError
	if errors.As(err, &de) {
		return de.Warning
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DataPeekError.
func GetCategory(err error) ErrorCategory {
	var de *DataPeekError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DataPeekError.
func GetCode(err error) string {
	var de *DataPeekError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// isWarning determines if an error code is non-fatal. Only partial
// ingestion recovery qualifies: the rows collected before the fault
// remain usable.
func isWarning(category ErrorCategory, code string) bool {
	return category == ErrCategoryIngest && code == CodePartialData
}

// Convenience constructors for common errors.

func NewUsageError(code, message string) *DataPeekError {
	return New(ErrCategoryUsage, code, message)
}

func NewIngestError(code, message string, cause error) *DataPeekError {
	return Wrap(ErrCategoryIngest, code, message, cause)
}

func NewQueryError(message string, cause error) *DataPeekError {
	return Wrap(ErrCategoryQuery, CodeEvaluationFailed, message, cause)
}

func NewInternalError(message string, cause error) *DataPeekError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
