package errors

import (
	"errors"
	"fmt"
)

// PaymentsError is the structured error type for paymentsmcp.
// It carries enough context for logging, CLI output and MCP error payloads.
type PaymentsError struct {
	// Code is the unique error code (e.g., "ERR_301_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Protocol, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *PaymentsError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PaymentsError) Unwrap() error {
	return e.Cause
}

// Is matches another PaymentsError by code, so errors.Is works against
// the sentinel values below.
func (e *PaymentsError) Is(target error) bool {
	if t, ok := target.(*PaymentsError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *PaymentsError) WithDetail(key, value string) *PaymentsError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
func (e *PaymentsError) WithSuggestion(suggestion string) *PaymentsError {
	e.Suggestion = suggestion
	return e
}

// New creates a PaymentsError. Category and severity are derived from the code.
func New(code string, message string, cause error) *PaymentsError {
	return &PaymentsError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a PaymentsError from an existing error, reusing its message.
func Wrap(code string, err error) *PaymentsError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Never mutate these.
var (
	ErrStore           = &PaymentsError{Code: ErrCodeStoreUnavailable}
	ErrUnknownTool     = &PaymentsError{Code: ErrCodeUnknownTool}
	ErrUnknownResource = &PaymentsError{Code: ErrCodeUnknownResource}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PaymentsError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// MissingURIError reports that no store connection string was configured.
func MissingURIError() *PaymentsError {
	return New(ErrCodeConfigMissingURI, "MONGODB_URI is not set", nil).
		WithSuggestion("Export MONGODB_URI or set store.uri in .paymentsmcp.yaml")
}

// StoreError collapses any connectivity or query failure into one error kind.
// Callers never see driver-specific error types.
func StoreError(message string, cause error) *PaymentsError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// ConnectionCloseError reports a failure while releasing a store connection.
func ConnectionCloseError(cause error) *PaymentsError {
	return New(ErrCodeStoreClose, "error closing MongoDB connection", cause)
}

// UnknownToolError reports a call to a tool that is not registered.
func UnknownToolError(name string) *PaymentsError {
	return New(ErrCodeUnknownTool, fmt.Sprintf("unknown tool: %s", name), nil).
		WithDetail("tool", name)
}

// UnknownResourceError reports a read of a resource URI that is not registered.
func UnknownResourceError(uri string) *PaymentsError {
	return New(ErrCodeUnknownResource, fmt.Sprintf("unknown resource: %s", uri), nil).
		WithDetail("uri", uri)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PaymentsError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var pe *PaymentsError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a PaymentsError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var pe *PaymentsError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
