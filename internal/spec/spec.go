// Package spec defines the declarative cluster specification consumed by the
// provisioning engine.
//
// A ClusterSpec is loaded once from YAML, defaulted, validated, and never
// mutated after a provisioning run starts. Every provisioning stage derives
// its desired state from the spec; nothing reads ambient configuration.
package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Datastore kinds.
const (
	KindRelational = "relational"
	KindCache      = "cache"
)

// Spec is the declarative input describing the desired cluster.
type Spec struct {
	ClusterName  string   `yaml:"cluster_name"`
	Region       string   `yaml:"region"`
	AddressBlock string   `yaml:"address_block"`
	Zones        []string `yaml:"zones"`

	Nodes         NodeSpec          `yaml:"nodes"`
	Database      DatastoreSpec     `yaml:"database"`
	Cache         DatastoreSpec     `yaml:"cache"`
	Ingress       IngressSpec       `yaml:"ingress"`
	Observability ObservabilitySpec `yaml:"observability"`
	State         StateSpec         `yaml:"state"`
}

// NodeSpec bounds the worker node pool.
type NodeSpec struct {
	Min            int      `yaml:"min"`
	Desired        int      `yaml:"desired"`
	Max            int      `yaml:"max"`
	InstanceShapes []string `yaml:"instance_shapes"`
	KubeVersion    string   `yaml:"kube_version"`
}

// DatastoreSpec describes one managed datastore (relational or cache).
type DatastoreSpec struct {
	EngineVersion       string `yaml:"engine_version"`
	InstanceClass       string `yaml:"instance_class,omitempty"`
	StorageGB           int    `yaml:"storage_gb,omitempty"`
	NodeType            string `yaml:"node_type,omitempty"`
	ClusterCount        int    `yaml:"cluster_count,omitempty"`
	MultiZoneFailover   bool   `yaml:"multi_zone_failover"`
	EncryptionKeyRef    string `yaml:"encryption_key_ref"`
	BackupRetentionDays int    `yaml:"backup_retention_days"`
	BackupWindow        string `yaml:"backup_window"`
	DatabaseName        string `yaml:"database_name,omitempty"`
}

// IngressSpec configures the external entry point and certificate issuance.
type IngressSpec struct {
	Hostname     string `yaml:"hostname"`
	ContactEmail string `yaml:"contact_email"`
}

// ObservabilitySpec configures the log sink and telemetry forwarding.
type ObservabilitySpec struct {
	LogRetentionDays int    `yaml:"log_retention_days"`
	MetricsBackend   string `yaml:"metrics_backend"`
	TraceBackend     string `yaml:"trace_backend"`
}

// StateSpec selects where the provisioning graph is persisted between runs.
type StateSpec struct {
	Backend  string `yaml:"backend"`  // "file" or "s3"
	Path     string `yaml:"path"`     // file backend: state directory
	Bucket   string `yaml:"bucket"`   // s3 backend
	Endpoint string `yaml:"endpoint"` // s3 backend: custom endpoint (optional)
	Region   string `yaml:"region"`   // s3 backend
}

// Hash returns a stable content hash of a spec fragment. Stages record it
// per graph node so re-runs can skip nodes whose desired state is unchanged.
func Hash(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		// Spec types are plain structs; marshaling cannot fail for them.
		panic(fmt.Sprintf("spec hash: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
