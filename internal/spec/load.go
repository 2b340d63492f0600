package spec

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the spec file looked up when no path is given.
const DefaultFile = "cloudplane.yaml"

// Load reads, defaults, and validates a cluster spec from a YAML file.
func Load(path string) (*Spec, error) {
	if path == "" {
		path = DefaultFile
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a cluster spec from YAML bytes, applies defaults, and
// validates it. Unknown fields are rejected so typos fail loudly instead of
// silently provisioning defaults.
func Parse(data []byte) (*Spec, error) {
	var s Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec: %w", err)
	}

	s.ApplyDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ApplyDefaults fills optional fields with their documented defaults.
// It never overrides a value the user set explicitly.
func (s *Spec) ApplyDefaults() {
	if s.AddressBlock == "" {
		s.AddressBlock = "10.0.0.0/16"
	}

	if s.Nodes.Min == 0 {
		s.Nodes.Min = 1
	}
	if s.Nodes.Desired == 0 {
		s.Nodes.Desired = s.Nodes.Min
	}
	if s.Nodes.Max == 0 {
		s.Nodes.Max = s.Nodes.Desired
	}

	if s.Database.BackupRetentionDays == 0 {
		s.Database.BackupRetentionDays = 7
	}
	if s.Database.BackupWindow == "" {
		s.Database.BackupWindow = "02:00-03:00"
	}
	if s.Database.DatabaseName == "" {
		s.Database.DatabaseName = "app"
	}

	if s.Cache.ClusterCount == 0 {
		s.Cache.ClusterCount = 2
	}
	if s.Cache.BackupRetentionDays == 0 {
		s.Cache.BackupRetentionDays = 1
	}
	if s.Cache.BackupWindow == "" {
		s.Cache.BackupWindow = "03:00-04:00"
	}

	if s.Observability.LogRetentionDays == 0 {
		s.Observability.LogRetentionDays = 30
	}

	if s.State.Backend == "" {
		s.State.Backend = "file"
	}
	if s.State.Backend == "file" && s.State.Path == "" {
		s.State.Path = ".cloudplane"
	}
}
