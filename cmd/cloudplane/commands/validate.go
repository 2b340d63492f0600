package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Validate returns the command that checks a spec without touching the
// cloud. Suitable as a pre-commit or CI gate.
func Validate() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the cluster spec",
		Long: `Validate the spec file: syntax, semantic constraints, and
address plan satisfiability. Nothing is provisioned or persisted.

Examples:
  cloudplane validate
  cloudplane validate -f production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), specPath)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the spec file (default: cloudplane.yaml)")

	return cmd
}
