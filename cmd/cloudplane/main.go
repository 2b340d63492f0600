// Package main is the entry point for the cloudplane CLI.
//
// cloudplane provisions a complete application platform from one declarative
// spec: network topology, a managed Kubernetes control plane and node pool,
// HA relational and cache datastores, a certificate-backed ingress, and an
// observability bridge.
//
// Commands: init, validate, plan, apply, output, destroy.
//
// For detailed usage information, run:
//
//	cloudplane --help
package main

import (
	"fmt"
	"os"

	"github.com/cloudplane/cloudplane/cmd/cloudplane/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
