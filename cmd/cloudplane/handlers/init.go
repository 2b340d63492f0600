package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// specTemplate is written by non-interactive init.
const specTemplate = `# cloudplane cluster spec
cluster_name: my-cluster
region: us-east-1
address_block: 10.0.0.0/16
zones:
  - us-east-1a
  - us-east-1b
  - us-east-1c

nodes:
  desired: 3
  instance_shapes:
    - m6i.large
    - m5.large

database:
  engine_version: "16.4"
  instance_class: db.m6g.large
  storage_gb: 100
  multi_zone_failover: true
  encryption_key_ref: alias/cloudplane

cache:
  engine_version: "7.1"
  node_type: cache.m6g.large
  multi_zone_failover: true
  encryption_key_ref: alias/cloudplane

ingress:
  hostname: app.example.com
  contact_email: ops@example.com

observability:
  log_retention_days: 30

state:
  backend: file
`

// Init writes a new spec file, either from the interactive wizard or as a
// template.
func Init(ctx context.Context, output string, nonInteractive bool) error {
	path := specFile(output)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	var data []byte
	if nonInteractive {
		data = []byte(specTemplate)
	} else {
		s, err := runWizard(ctx)
		if err != nil {
			return fmt.Errorf("wizard aborted: %w", err)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		data, err = yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to render spec: %w", err)
		}
	}

	if err := writeFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("Wrote %s. Review it, then run 'cloudplane apply'.", path)
	return nil
}
