package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Output returns the command that prints the provisioning outputs.
func Output() *cobra.Command {
	var (
		specPath string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "output",
		Short: "Print the endpoints and identifiers of a provisioned cluster",
		Long: `Print the provisioning outputs: control plane endpoint, datastore
endpoints (credentials redacted), ingress hostname with its DNS hint,
subnet ids, and the log sink id.

Exits non-zero when the cluster is not fully provisioned.

Examples:
  cloudplane output
  cloudplane output --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Output(cmd.Context(), specPath, format)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the spec file (default: cloudplane.yaml)")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")

	return cmd
}
