package handlers

import (
	"context"
	"fmt"

	"github.com/cloudplane/cloudplane/internal/engine"
)

// Plan prints the action apply would take per resource node.
func Plan(ctx context.Context, specPath string) error {
	s, err := loadSpec(specFile(specPath))
	if err != nil {
		return err
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{Spec: s, Store: st})
	entries, err := eng.Plan(ctx)
	if err != nil {
		return err
	}

	fmt.Print(engine.RenderPlan(entries))
	return nil
}
