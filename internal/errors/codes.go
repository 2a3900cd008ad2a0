// Package errors provides structured error handling for paymentsmcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: Document store errors
//   - 4XX: Protocol lookup errors (unknown tool / resource)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates document store connectivity or query errors.
	CategoryStore Category = "STORE"
	// CategoryProtocol indicates a request named something that is not registered.
	CategoryProtocol Category = "PROTOCOL"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the process cannot start or continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates a single request failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigMissingURI = "ERR_101_CONFIG_MISSING_URI"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"

	// Store errors (300-399)
	ErrCodeStoreUnavailable = "ERR_301_STORE_UNAVAILABLE"
	ErrCodeStoreClose       = "ERR_302_STORE_CLOSE"

	// Protocol errors (400-499)
	ErrCodeUnknownTool     = "ERR_401_UNKNOWN_TOOL"
	ErrCodeUnknownResource = "ERR_402_UNKNOWN_RESOURCE"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_301_..." -> '3'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryStore
	case '4':
		return CategoryProtocol
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigMissingURI, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeStoreClose:
		return SeverityWarning
	default:
		return SeverityError
	}
}
