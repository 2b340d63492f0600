package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Destroy returns the command that tears the cluster down.
func Destroy() *cobra.Command {
	var (
		specPath string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the cluster and all associated resources",
		Long: `Destroy removes every provisioned resource in reverse dependency
order: the log sink, the entry point, the datastores, the compute
cluster, and finally the network.

The relational store keeps a final snapshot; everything else is deleted
outright.

Example:
  cloudplane destroy --yes

WARNING: This operation is irreversible apart from the final snapshot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), specPath, yes)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the spec file (default: cloudplane.yaml)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
