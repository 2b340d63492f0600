// Package handlers implements the business logic for CLI commands.
//
// Handler functions are called by the command definitions in the commands
// package. They are framework-agnostic and testable independently of cobra.
package handlers

import (
	"context"
	"os"

	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/spec/wizard"
	"github.com/cloudplane/cloudplane/internal/store"
	"github.com/cloudplane/cloudplane/pkg/cloud"
	"github.com/cloudplane/cloudplane/pkg/cloud/aws"
)

// Factory function variables - replaced in tests for dependency injection.
var (
	// loadSpec loads and validates the spec file.
	loadSpec = spec.Load

	// openStore opens the graph store the spec selects.
	openStore = store.Open

	// newProvider creates the cloud provider.
	newProvider = func(ctx context.Context, s *spec.Spec) (cloud.Provider, error) {
		return aws.New(ctx, aws.Options{
			Region:         s.Region,
			ClusterRoleARN: os.Getenv("CLOUDPLANE_CLUSTER_ROLE_ARN"),
			NodeRoleARN:    os.Getenv("CLOUDPLANE_NODE_ROLE_ARN"),
		})
	}

	// runWizard runs the interactive spec builder.
	runWizard = wizard.Run

	// writeFile writes data to a file.
	writeFile = os.WriteFile
)

// specFile resolves the spec path flag to a concrete file.
func specFile(path string) string {
	if path == "" {
		return spec.DefaultFile
	}
	return path
}
