package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/charmbracelet/huh"

	"github.com/cloudplane/cloudplane/internal/engine"
)

// Destroy tears the cluster down in reverse dependency order. Without
// --yes it asks for confirmation first.
func Destroy(ctx context.Context, specPath string, yes bool) error {
	s, err := loadSpec(specFile(specPath))
	if err != nil {
		return err
	}

	if !yes {
		var confirmed bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Destroy cluster %q and all its resources?", s.ClusterName)).
					Description("The relational store keeps a final snapshot; everything else is deleted.").
					Value(&confirmed),
			),
		).RunWithContext(ctx)
		if err != nil {
			return err
		}
		if !confirmed {
			log.Printf("Destroy cancelled.")
			return nil
		}
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, s)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{Spec: s, Store: st, Provider: provider})
	return eng.Destroy(ctx)
}
