package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudplane/cloudplane/internal/report"
)

// Output prints the provisioning outputs of a fully provisioned cluster.
func Output(ctx context.Context, specPath, format string) error {
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown format %q, expected yaml or json", format)
	}

	s, err := loadSpec(specFile(specPath))
	if err != nil {
		return err
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}

	g, err := st.Load(ctx, s.ClusterName)
	if err != nil {
		return err
	}

	out, err := report.Build(s, g)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		rendered, err := out.Render()
		if err != nil {
			return err
		}
		fmt.Print(rendered)
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render output: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}
