package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextapp/paymentsmcp/internal/config"
	perrors "github.com/nextapp/paymentsmcp/internal/errors"
)

// DefaultStoreTimeout bounds the store reachability check.
const DefaultStoreTimeout = 10 * time.Second

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Pinger checks store reachability. *store.Gateway implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreFactory builds a Pinger for a validated configuration.
type StoreFactory func(cfg *config.Config) Pinger

// Checker performs preflight validation checks.
type Checker struct {
	verbose      bool
	color        bool
	output       io.Writer
	storeFactory StoreFactory
	storeTimeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithColor enables styled status labels.
func WithColor(color bool) Option {
	return func(c *Checker) {
		c.color = color
	}
}

// WithStoreFactory sets how the store check reaches MongoDB. Without it the
// store check is skipped with a warning.
func WithStoreFactory(f StoreFactory) Option {
	return func(c *Checker) {
		c.storeFactory = f
	}
}

// WithStoreTimeout bounds the store check.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output:       os.Stdout,
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks and returns the results.
func (c *Checker) RunAll(ctx context.Context, cfg *config.Config) []CheckResult {
	var results []CheckResult

	configResult := c.CheckConfig(cfg)
	results = append(results, configResult)

	results = append(results, c.CheckLogFile(cfg))

	// Reaching the store needs a usable configuration.
	if configResult.Status == StatusFail {
		results = append(results, CheckResult{
			Name:     "store",
			Status:   StatusWarn,
			Message:  "skipped: configuration is invalid",
			Required: true,
		})
	} else {
		results = append(results, c.CheckStore(ctx, cfg))
	}

	return results
}

// CheckConfig validates the resolved configuration.
func (c *Checker) CheckConfig(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}

	if cfg == nil {
		result.Status = StatusFail
		result.Message = "no configuration loaded"
		return result
	}

	if err := cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = errorText(err)
		var pe *perrors.PaymentsError
		if errors.As(err, &pe) && pe.Suggestion != "" {
			result.Details = pe.Suggestion
		}
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%s.%s)", cfg.Store.Database, cfg.Store.Collection)
	result.Details = "uri: " + config.RedactURI(cfg.Store.URI)
	return result
}

// CheckLogFile checks the configured log file's directory is writable.
func (c *Checker) CheckLogFile(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "log_file",
		Required: false,
	}

	if cfg == nil || cfg.Server.LogFile == "" {
		result.Status = StatusPass
		result.Message = "stderr only"
		return result
	}

	dir := filepath.Dir(cfg.Server.LogFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot create log directory: %v", err)
		return result
	}

	testFile := filepath.Join(dir, ".paymentsmcp-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = cfg.Server.LogFile
	return result
}

// CheckStore opens a connection, pings MongoDB and closes it again.
func (c *Checker) CheckStore(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "store",
		Required: true,
	}

	if c.storeFactory == nil {
		result.Status = StatusWarn
		result.Message = "skipped: no store configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	start := time.Now()
	if err := c.storeFactory(cfg).Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unreachable: %s", errorText(err))
		result.Details = "Check MONGODB_URI, network access and credentials."
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%s)", time.Since(start).Round(time.Millisecond))
	return result
}

// errorText returns the message of a PaymentsError without its code prefix.
func errorText(err error) string {
	var pe *perrors.PaymentsError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, c.style(titleStyle, "paymentsmcp System Check"))
	_, _ = fmt.Fprintln(c.output, "========================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", c.statusIcon(r.Status), r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", c.style(mutedStyle, r.Details))
		}
	}

	_, _ = fmt.Fprintln(c.output)
	status := c.SummaryStatus(results)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(status))

	// Print summary of issues
	var warnings, failures []string
	for _, r := range results {
		if r.IsCritical() {
			failures = append(failures, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(failures))
		for _, e := range failures {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("154")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func (c *Checker) style(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}

func (c *Checker) statusIcon(status CheckStatus) string {
	switch status {
	case StatusPass:
		return c.style(passStyle, "PASS")
	case StatusWarn:
		return c.style(warnStyle, "WARN")
	case StatusFail:
		return c.style(failStyle, "FAIL")
	default:
		return "????"
	}
}
