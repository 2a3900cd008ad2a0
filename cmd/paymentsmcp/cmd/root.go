// Package cmd provides the CLI commands for paymentsmcp.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
	"github.com/nextapp/paymentsmcp/internal/logging"
	"github.com/nextapp/paymentsmcp/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// configDir is where .paymentsmcp.yaml and .env are looked up.
var configDir string

// NewRootCmd creates the root command for paymentsmcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paymentsmcp",
		Short: "MCP server exposing read-only MongoDB payment queries",
		Long: `paymentsmcp serves payment records from MongoDB to AI agents over the
Model Context Protocol (stdio).

Tools:     get_completed_payments, get_all_payments
Resources: payments://done

Set MONGODB_URI (environment, .env or .paymentsmcp.yaml) and point your MCP
client at 'paymentsmcp'. Running without a subcommand starts the server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), cmd.ErrOrStderr(), configDir)
		},
	}

	cmd.SetVersionTemplate("paymentsmcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.paymentsmcp/logs/")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing .paymentsmcp.yaml and .env")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug file logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))

	return nil
}

// stopLogging flushes and closes the debug log file.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints failures to stderr.
func Execute() error {
	return run(NewRootCmd(), os.Stderr)
}

// run executes root. Failures serve already logged as JSON records are not
// printed again, so the diagnostic stream stays line-delimited JSON.
func run(root *cobra.Command, stderr io.Writer) error {
	err := root.Execute()
	if err == nil {
		return nil
	}

	var logged *loggedError
	if !errors.As(err, &logged) {
		_, _ = fmt.Fprintln(stderr, perrors.FormatForCLI(err))
	}
	return err
}
