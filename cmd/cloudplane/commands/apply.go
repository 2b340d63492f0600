package commands

import (
	"github.com/spf13/cobra"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/handlers"
)

// Apply returns the command that provisions the cluster.
//
// Optional flags:
//
//	--file, -f: path to the spec file (default: cloudplane.yaml)
//	--metrics-listen: expose run metrics on this address while applying
//	--log-json: emit provisioning events as JSON log lines
//
// Credentials come from the default AWS credential chain.
func Apply() *cobra.Command {
	var (
		specPath      string
		metricsListen string
		logJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster",
		Long: `Provision every resource the spec declares, in dependency order.

Re-applying is idempotent: nodes whose desired state is unchanged are
skipped, changed nodes are updated, failed nodes are retried. When any
node fails the command exits non-zero and the remaining dependent nodes
are not attempted.

Examples:
  # Apply cloudplane.yaml in the current directory
  cloudplane apply

  # Apply a specific spec and expose metrics while running
  cloudplane apply -f production.yaml --metrics-listen :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), specPath, metricsListen, logJSON)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the spec file (default: cloudplane.yaml)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on during the run")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit provisioning events as JSON log lines")

	return cmd
}
