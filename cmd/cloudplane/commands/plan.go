package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Plan returns the command that previews what apply would do.
func Plan() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview what apply would change",
		Long: `Diff the spec against the persisted provisioning graph and print
the action per resource node. Nothing is provisioned.

Examples:
  cloudplane plan
  cloudplane plan -f production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), specPath)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the spec file (default: cloudplane.yaml)")

	return cmd
}
