package handlers

import (
	"context"
	"log"

	"github.com/cloudplane/cloudplane/internal/provisioning"
)

// Validate loads the spec and checks everything that can be checked without
// a cloud credential: syntax, semantic constraints, and address plan
// satisfiability.
func Validate(_ context.Context, specPath string) error {
	s, err := loadSpec(specFile(specPath))
	if err != nil {
		return err
	}

	// Loading already validated field constraints; this catches address
	// blocks too small for the zone count.
	if _, err := provisioning.DesiredHashes(s); err != nil {
		return err
	}

	log.Printf("Spec for cluster %q is valid: %d zones in %s, %d subnets planned.",
		s.ClusterName, len(s.Zones), s.Region, 4*len(s.Zones))
	return nil
}
