// Package mcp implements the Model Context Protocol server for paymentsmcp.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
)

// MCP error codes.
const (
	// ErrCodeStoreUnavailable indicates the payment store could not be queried.
	ErrCodeStoreUnavailable = -32001

	// ErrCodeResourceNotFound matches the MCP resource-not-found code.
	ErrCodeResourceNotFound = -32002

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var pe *perrors.PaymentsError
	if errors.As(err, &pe) {
		return mapPaymentsError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

func mapPaymentsError(pe *perrors.PaymentsError) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s %s", pe.Message, pe.Suggestion)
	}

	switch pe.Code {
	case perrors.ErrCodeStoreUnavailable:
		return &MCPError{Code: ErrCodeStoreUnavailable, Message: message}
	case perrors.ErrCodeUnknownTool:
		return &MCPError{Code: ErrCodeMethodNotFound, Message: message}
	case perrors.ErrCodeUnknownResource:
		return &MCPError{Code: ErrCodeResourceNotFound, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}

// ErrorPayload is the JSON body returned in place of resource contents when
// a read fails.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewErrorPayload builds the payload for err.
func NewErrorPayload(err error) ErrorPayload {
	payload := ErrorPayload{
		Error:   "Failed to fetch payments",
		Message: err.Error(),
	}

	var pe *perrors.PaymentsError
	if errors.As(err, &pe) {
		payload.Message = pe.Message
		payload.Code = pe.Code
		if pe.Code == perrors.ErrCodeUnknownResource {
			payload.Error = "Resource not found"
		}
	}
	return payload
}

// JSON renders the payload indented, as resource contents are.
func (p ErrorPayload) JSON() string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		// Three string fields always marshal.
		return fmt.Sprintf(`{"error": %q}`, p.Error)
	}
	return string(data)
}
