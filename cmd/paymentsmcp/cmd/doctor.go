package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextapp/paymentsmcp/internal/config"
	"github.com/nextapp/paymentsmcp/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		noColor    bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and MongoDB connectivity",
		Long: `Run diagnostics to ensure paymentsmcp can serve.

Checks:
  - Configuration (MONGODB_URI set, valid transport and log level)
  - Log file directory is writable (when server.log_file is set)
  - MongoDB is reachable (connect, ping, close)

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  paymentsmcp doctor

  # JSON output for scripting
  paymentsmcp doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, doctorOptions{
				verbose:    verbose,
				jsonOutput: jsonOutput,
				noColor:    noColor,
				timeout:    timeout,
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().DurationVar(&timeout, "timeout", preflight.DefaultStoreTimeout, "Timeout for the MongoDB check")

	return cmd
}

type doctorOptions struct {
	verbose    bool
	jsonOutput bool
	noColor    bool
	timeout    time.Duration
}

// gatewayFactory builds the same per-request gateway serve uses.
func gatewayFactory(cfg *config.Config) preflight.Pinger {
	return newGateway(cfg)
}

func runDoctor(cmd *cobra.Command, opts doctorOptions) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Resolve(configDir)
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithVerbose(opts.verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithColor(!opts.noColor && !opts.jsonOutput && isTerminal(cmd.OutOrStdout())),
		preflight.WithStoreFactory(gatewayFactory),
		preflight.WithStoreTimeout(opts.timeout),
	)

	results := checker.RunAll(ctx, cfg)

	if opts.jsonOutput {
		if err := outputJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// doctorError is a custom error for doctor command failures.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status   string            `json:"status"`
	Checks   []JSONCheckResult `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// JSONCheckResult is a single check result for JSON output.
type JSONCheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func outputJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	output := JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: make([]JSONCheckResult, len(results)),
	}

	for i, r := range results {
		output.Checks[i] = JSONCheckResult{
			Name:     r.Name,
			Status:   statusToString(r.Status),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}

		if r.IsCritical() {
			output.Errors = append(output.Errors, r.Name+": "+r.Message)
		} else if r.Status != preflight.StatusPass {
			output.Warnings = append(output.Warnings, r.Name+": "+r.Message)
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func statusToString(s preflight.CheckStatus) string {
	switch s {
	case preflight.StatusPass:
		return "pass"
	case preflight.StatusWarn:
		return "warn"
	case preflight.StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}
