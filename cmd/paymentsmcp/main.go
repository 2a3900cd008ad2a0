// Package main provides the entry point for the paymentsmcp CLI.
package main

import (
	"os"

	"github.com/nextapp/paymentsmcp/cmd/paymentsmcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
