// Package errors provides categorized error types for the reconciliation
// pipeline. Errors carry a category, a machine-readable code, optional
// context values, and an actionable suggestion for the user.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies errors for exit-code mapping and reporting.
type Category string

const (
	// CategoryFile covers problems accessing input files.
	CategoryFile Category = "file"
	// CategoryParse covers CSV structure and encoding problems.
	CategoryParse Category = "parse"
	// CategoryNormalization covers per-row field normalization failures.
	// These are collected, never fatal.
	CategoryNormalization Category = "normalization"
	// CategoryConfiguration covers invalid run parameters. Always fatal,
	// raised before any file is read.
	CategoryConfiguration Category = "configuration"
	// CategoryReconciliation covers failures inside the matching engine.
	CategoryReconciliation Category = "reconciliation"
)

// Common error codes used across the pipeline.
const (
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeFileAccess        = "FILE_ACCESS_DENIED"
	CodeInvalidEncoding   = "INVALID_ENCODING"
	CodeMissingColumn     = "MISSING_COLUMN"
	CodeMalformedCSV      = "MALFORMED_CSV"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeInvalidMatchIndex = "INVALID_MATCH_INDEX"
	CodeAliasStore        = "ALIAS_STORE_ERROR"
)

// ReconcileError is the error type produced throughout the pipeline.
type ReconcileError struct {
	Category   Category
	Code       string
	Message    string
	Suggestion string
	Context    map[string]interface{}
	Cause      error
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s/%s] %s", e.Category, e.Code, e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, v)
			first = false
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair and returns the error for chaining.
func (e *ReconcileError) WithContext(key string, value interface{}) *ReconcileError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion sets the user-facing remediation hint.
func (e *ReconcileError) WithSuggestion(s string) *ReconcileError {
	e.Suggestion = s
	return e
}

// New creates a ReconcileError with a stack-traced cause.
func New(category Category, code, message string) *ReconcileError {
	return &ReconcileError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    errors.New(message),
	}
}

// Wrap creates a ReconcileError wrapping an existing error with a stack trace.
func Wrap(cause error, category Category, code, message string) *ReconcileError {
	return &ReconcileError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    errors.Wrap(cause, message),
	}
}

// NewFileError creates a file access error.
func NewFileError(code, message string) *ReconcileError {
	return New(CategoryFile, code, message)
}

// NewParseError creates a CSV structure error.
func NewParseError(code, message string) *ReconcileError {
	return New(CategoryParse, code, message)
}

// NewNormalizationError creates a per-row normalization error. The line number
// is attached as context so reports can point at the offending row.
func NewNormalizationError(code, message string, line int) *ReconcileError {
	return New(CategoryNormalization, code, message).WithContext("line", line)
}

// NewConfigError creates a fatal configuration error.
func NewConfigError(message string) *ReconcileError {
	return New(CategoryConfiguration, CodeInvalidConfig, message)
}

// NewReconciliationError creates an engine-level error.
func NewReconciliationError(code, message string) *ReconcileError {
	return New(CategoryReconciliation, code, message)
}

// GetCategory extracts the category of an error, or empty for foreign errors.
func GetCategory(err error) Category {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// IsFatal reports whether the error should abort the run. Normalization
// errors are collected and reported, never fatal.
func IsFatal(err error) bool {
	return GetCategory(err) != CategoryNormalization
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCategory(err) {
	case CategoryFile:
		return 2
	case CategoryParse:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation:
		return 5
	default:
		return 1
	}
}

// FormatUserError renders an error for terminal display, including the
// suggestion when one is set.
func FormatUserError(err error) string {
	var re *ReconcileError
	if !errors.As(err, &re) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(re.Message)
	for k, v := range re.Context {
		fmt.Fprintf(&b, "\n  %s: %v", k, v)
	}
	if re.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s", re.Suggestion)
	}
	return b.String()
}

// ErrorSummary aggregates collected non-fatal errors for reporting.
type ErrorSummary struct {
	Errors []error
}

// Add appends an error when non-nil.
func (s *ErrorSummary) Add(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// Count returns the number of collected errors.
func (s *ErrorSummary) Count() int {
	return len(s.Errors)
}

// HasErrors reports whether anything was collected.
func (s *ErrorSummary) HasErrors() bool {
	return len(s.Errors) > 0
}

// ByCategory groups the collected errors by category.
func (s *ErrorSummary) ByCategory() map[Category][]error {
	out := make(map[Category][]error)
	for _, err := range s.Errors {
		out[GetCategory(err)] = append(out[GetCategory(err)], err)
	}
	return out
}
