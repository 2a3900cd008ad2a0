package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nextapp/paymentsmcp/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the paymentsmcp release, commit and toolchain",
		Long: `Print the release tag, git commit and commit time stamped into this binary.

Binaries installed with "go install ...@vX.Y.Z" report the tag. Local builds
report a pseudo-version or "dev".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeVersion(cmd.OutOrStdout(), asJSON, short)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Output only the version number (overrides --json)")

	return cmd
}

func writeVersion(w io.Writer, asJSON, short bool) error {
	switch {
	case short:
		_, err := fmt.Fprintln(w, version.Short())
		return err
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(version.GetInfo())
	default:
		_, err := fmt.Fprintln(w, version.String())
		return err
	}
}
