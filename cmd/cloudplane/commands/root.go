// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the cloudplane CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloudplane",
		Short: "Provision a declarative application platform on AWS",
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Output())
	cmd.AddCommand(Destroy())

	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
