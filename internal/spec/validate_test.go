package spec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSpec returns a spec that passes validation; tests mutate one field at
// a time.
func validSpec() *Spec {
	return &Spec{
		ClusterName:  "prod-cluster",
		Region:       "us-east-1",
		AddressBlock: "10.0.0.0/16",
		Zones:        []string{"us-east-1a", "us-east-1b", "us-east-1c"},
		Nodes: NodeSpec{
			Min:            2,
			Desired:        3,
			Max:            5,
			InstanceShapes: []string{"m6i.large"},
		},
		Database: DatastoreSpec{
			EngineVersion:       "16.4",
			InstanceClass:       "db.m6g.large",
			StorageGB:           100,
			MultiZoneFailover:   true,
			EncryptionKeyRef:    "alias/test",
			BackupRetentionDays: 7,
		},
		Cache: DatastoreSpec{
			EngineVersion:     "7.1",
			NodeType:          "cache.m6g.large",
			ClusterCount:      2,
			MultiZoneFailover: true,
			EncryptionKeyRef:  "alias/test",
		},
		Ingress: IngressSpec{
			Hostname:     "app.example.com",
			ContactEmail: "ops@example.com",
		},
		Observability: ObservabilitySpec{LogRetentionDays: 30},
		State:         StateSpec{Backend: "file", Path: ".cloudplane"},
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	t.Parallel()
	require.NoError(t, validSpec().Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		mutate    func(*Spec)
		wantField string
	}{
		{
			name:      "missing cluster name",
			mutate:    func(s *Spec) { s.ClusterName = "" },
			wantField: "cluster_name",
		},
		{
			name:      "uppercase cluster name",
			mutate:    func(s *Spec) { s.ClusterName = "Prod" },
			wantField: "cluster_name",
		},
		{
			name:      "cluster name too long",
			mutate:    func(s *Spec) { s.ClusterName = strings.Repeat("a", 64) },
			wantField: "cluster_name",
		},
		{
			name:      "missing region",
			mutate:    func(s *Spec) { s.Region = "" },
			wantField: "region",
		},
		{
			name:      "no zones",
			mutate:    func(s *Spec) { s.Zones = nil },
			wantField: "zones",
		},
		{
			name:      "invalid address block",
			mutate:    func(s *Spec) { s.AddressBlock = "10.0.0.0" },
			wantField: "address_block",
		},
		{
			name:      "address block too small",
			mutate:    func(s *Spec) { s.AddressBlock = "10.0.0.0/24" },
			wantField: "address_block",
		},
		{
			name:      "ipv6 address block",
			mutate:    func(s *Spec) { s.AddressBlock = "2001:db8::/32" },
			wantField: "address_block",
		},
		{
			name:      "min above desired",
			mutate:    func(s *Spec) { s.Nodes.Min = 4 },
			wantField: "nodes.desired",
		},
		{
			name:      "desired above max",
			mutate:    func(s *Spec) { s.Nodes.Desired = 6 },
			wantField: "nodes.max",
		},
		{
			name:      "node count out of bounds",
			mutate:    func(s *Spec) { s.Nodes.Max = 500 },
			wantField: "nodes.max",
		},
		{
			name:      "no instance shapes",
			mutate:    func(s *Spec) { s.Nodes.InstanceShapes = nil },
			wantField: "nodes.instance_shapes",
		},
		{
			name:      "nil database encryption key",
			mutate:    func(s *Spec) { s.Database.EncryptionKeyRef = "" },
			wantField: "database.encryption_key_ref",
		},
		{
			name:      "nil cache encryption key",
			mutate:    func(s *Spec) { s.Cache.EncryptionKeyRef = "" },
			wantField: "cache.encryption_key_ref",
		},
		{
			name: "failover with one zone",
			mutate: func(s *Spec) {
				s.Zones = []string{"us-east-1a"}
				s.Database.MultiZoneFailover = true
				s.Cache.MultiZoneFailover = false
			},
			wantField: "database.multi_zone_failover",
		},
		{
			name:      "single cache cluster",
			mutate:    func(s *Spec) { s.Cache.ClusterCount = 1 },
			wantField: "cache.cluster_count",
		},
		{
			name:      "missing ingress hostname",
			mutate:    func(s *Spec) { s.Ingress.Hostname = "" },
			wantField: "ingress.hostname",
		},
		{
			name:      "malformed contact email",
			mutate:    func(s *Spec) { s.Ingress.ContactEmail = "not-an-email" },
			wantField: "ingress.contact_email",
		},
		{
			name:      "retention out of range",
			mutate:    func(s *Spec) { s.Observability.LogRetentionDays = 5000 },
			wantField: "observability.log_retention_days",
		},
		{
			name:      "unknown state backend",
			mutate:    func(s *Spec) { s.State.Backend = "etcd" },
			wantField: "state.backend",
		},
		{
			name: "s3 backend without bucket",
			mutate: func(s *Spec) {
				s.State.Backend = "s3"
				s.State.Bucket = ""
			},
			wantField: "state.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSpec()
			tt.mutate(s)

			err := s.Validate()
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)

			fields := make([]string, 0, len(errs))
			for _, ve := range errs {
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidateAggregatesAllFailures(t *testing.T) {
	t.Parallel()

	s := validSpec()
	s.ClusterName = ""
	s.Region = ""
	s.Database.EncryptionKeyRef = ""

	err := s.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.GreaterOrEqual(t, len(errs), 3)
}
