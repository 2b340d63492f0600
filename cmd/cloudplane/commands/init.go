package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Init returns the command that writes a new spec file.
//
// Without flags it runs an interactive wizard. With --non-interactive a
// minimal template is written instead.
func Init() *cobra.Command {
	var (
		output         string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a cluster spec",
		Long: `Create a cloudplane.yaml spec file.

By default an interactive wizard walks through cluster identity, zones,
node sizing, datastores, and ingress. Use --non-interactive to write a
commented template instead.

Examples:
  # Interactive wizard
  cloudplane init

  # Write a template to a custom path
  cloudplane init --non-interactive -o staging.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), output, nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to write the spec to (default: cloudplane.yaml)")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Write a template instead of running the wizard")

	return cmd
}
