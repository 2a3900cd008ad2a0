package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextapp/paymentsmcp/internal/config"
	"github.com/nextapp/paymentsmcp/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage paymentsmcp configuration",
		Long: `Manage the project configuration file (.paymentsmcp.yaml).

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. Project config (.paymentsmcp.yaml)
  3. .env file
  4. Environment variables (MONGODB_URI, PAYMENTSMCP_*)`,
		Example: `  # Create a config file with defaults
  paymentsmcp config init

  # Show effective configuration (credentials redacted)
  paymentsmcp config show

  # Print config file path
  paymentsmcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create configuration file",
		Long: `Create .paymentsmcp.yaml in the config directory with default settings.

The connection string is left empty; supply it through MONGODB_URI so that
credentials stay out of the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

The password in the MongoDB connection string is always redacted.`,
		Example: `  # Show merged configuration
  paymentsmcp config show

  # Show as JSON
  paymentsmcp config show --json

  # Show only the defaults
  paymentsmcp config show --source defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), configPath())
			return err
		},
	}
}

func configPath() string {
	return filepath.Join(configDir, config.FileName)
}

func newOutput(cmd *cobra.Command) *output.Writer {
	return output.New(cmd.OutOrStdout()).WithColor(isTerminal(cmd.OutOrStdout()))
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := newOutput(cmd)
	path := configPath()

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Newline()
		out.Status("💡", "Use --force to overwrite it with defaults")
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "1. Export MONGODB_URI (or add it to .env)")
	out.Status("", "2. Run 'paymentsmcp doctor' to verify")

	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var (
		cfg        *config.Config
		sourceDesc string
	)

	switch source {
	case "merged":
		var err error
		cfg, err = config.Resolve(configDir)
		if err != nil {
			return err
		}
		sourceDesc = "merged (defaults + project + .env + env)"
	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"
	default:
		return fmt.Errorf("invalid source: %s (use: merged, defaults)", source)
	}

	cfg = cfg.Redacted()

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	data, err := cfg.YAML()
	if err != nil {
		return err
	}

	out := newOutput(cmd)
	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Code(string(data))

	return nil
}
