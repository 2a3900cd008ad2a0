package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nextapp/paymentsmcp/internal/config"
	perrors "github.com/nextapp/paymentsmcp/internal/errors"
	"github.com/nextapp/paymentsmcp/internal/logging"
	"github.com/nextapp/paymentsmcp/internal/mcp"
	"github.com/nextapp/paymentsmcp/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server. stdout carries JSON-RPC frames only; all logs go
to stderr and, when configured, to a rotating log file.

This is what MCP clients should launch. Running 'paymentsmcp' with no
subcommand does the same.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd.ErrOrStderr(), configDir)
		},
	}
}

// runServe loads configuration, wires the store gateway into the MCP server
// and serves until the client disconnects or a signal arrives. Every failure
// is logged as a JSON record on stderr before it is returned.
func runServe(ctx context.Context, stderr io.Writer, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// --debug already installed a file logger.
	if !debugMode {
		logging.Bootstrap(stderr)
	}

	cfg, err := config.Resolve(dir)
	if err != nil {
		return logFailure("Configuration error", err)
	}

	if !debugMode {
		cleanup, err := logging.SetupMCPMode(stderr, cfg.Server.LogLevel, cfg.Server.LogFile)
		if err != nil {
			return logFailure("Logging setup error", err)
		}
		defer cleanup()
	}

	if err := cfg.Validate(); err != nil {
		return logFailure("Configuration error", err)
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		slog.Warn("stdin is a terminal; paymentsmcp expects an MCP client on stdio",
			slog.String("hint", "run 'paymentsmcp doctor' to check the setup interactively"))
	}

	gateway := newGateway(cfg)

	server, err := mcp.NewServer(gateway)
	if err != nil {
		return logFailure("Server error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("Starting MCP server",
		slog.String("transport", cfg.Server.Transport),
		slog.String("namespace", gateway.Namespace().String()),
		slog.String("uri", config.RedactURI(cfg.Store.URI)))

	if err := server.Serve(ctx, cfg.Server.Transport); err != nil {
		return logFailure("Server error", err)
	}
	return nil
}

// loggedError is a failure already reported as a structured log record.
// Execute does not print it again.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string { return e.err.Error() }
func (e *loggedError) Unwrap() error { return e.err }

// logFailure logs err at error level under msg and marks it as reported.
func logFailure(msg string, err error) error {
	slog.Error(msg, perrors.FormatForLog(err)...)
	return &loggedError{err: err}
}

// newGateway builds the per-request MongoDB gateway for cfg.
func newGateway(cfg *config.Config) *store.Gateway {
	return store.NewGateway(
		store.NewMongoConnector(cfg.Store.URI, cfg.Store.ServerSelectionTimeout),
		store.Namespace{Database: cfg.Store.Database, Collection: cfg.Store.Collection},
	)
}
