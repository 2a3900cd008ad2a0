package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/nextapp/paymentsmcp/internal/store"
)

// FormatPaymentsJSON renders payments as an indented JSON array.
// A nil or empty slice renders as [].
func FormatPaymentsJSON(payments []store.Payment) (string, error) {
	if payments == nil {
		payments = []store.Payment{}
	}
	data, err := json.MarshalIndent(payments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payments: %w", err)
	}
	return string(data), nil
}

// FormatPaymentsText renders a tool result: a count line followed by the
// JSON array.
func FormatPaymentsText(summary string, payments []store.Payment) (string, error) {
	body, err := FormatPaymentsJSON(payments)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Found %d %s:\n\n%s", len(payments), summary, body), nil
}
