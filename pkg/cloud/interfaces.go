// Package cloud defines the provider interfaces the provisioning stages
// call into. Implementations live in subpackages: pkg/cloud/aws for the real
// provider and pkg/cloud/fake for tests.
//
// Every method is an "ensure" operation: it creates the resource if missing
// and returns the existing one otherwise, so stages stay idempotent.
package cloud

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/topology"
)

// Control plane lifecycle statuses as reported by ControlPlaneStatus.
const (
	StatusCreating = "creating"
	StatusActive   = "active"
	StatusFailed   = "failed"
)

// Endpoint is a host/port pair of a provisioned service.
type Endpoint struct {
	Host string
	Port int
}

// ControlPlane describes a provisioned container-orchestration control plane.
type ControlPlane struct {
	Name     string
	Endpoint string
	CACert   string // base64-encoded cluster CA bundle
	Status   string
}

// NodePoolRequest describes a worker node pool to ensure.
type NodePoolRequest struct {
	Name           string
	Min            int
	Desired        int
	Max            int
	InstanceShapes []string
	SubnetIDs      []string
}

// RelationalRequest describes the HA relational store to ensure.
type RelationalRequest struct {
	Name                string
	EngineVersion       string
	InstanceClass       string
	StorageGB           int
	DatabaseName        string
	MultiZoneFailover   bool
	EncryptionKeyRef    string
	BackupRetentionDays int
	BackupWindow        string
	SubnetIDs           []string
	SecurityGroupID     string
}

// CacheRequest describes the HA cache to ensure.
type CacheRequest struct {
	Name                  string
	EngineVersion         string
	NodeType              string
	ClusterCount          int
	MultiZoneFailover     bool
	EncryptionKeyRef      string
	SnapshotRetentionDays int
	SnapshotWindow        string
	SubnetIDs             []string
	SecurityGroupID       string
}

// CacheEndpoints are the cache's primary and configuration endpoints.
type CacheEndpoints struct {
	Primary       Endpoint
	Configuration Endpoint
}

// LoadBalancer describes the provisioned ingress entry point.
type LoadBalancer struct {
	ID       string
	Hostname string
}

// NetworkService provisions the virtual network, subnets, and access
// policies derived from the access graph.
type NetworkService interface {
	// EnsureNetwork ensures the virtual network exists and returns its id.
	EnsureNetwork(ctx context.Context, name, cidr string) (string, error)

	// EnsureSubnet ensures one (tier, zone) subnet and returns its id.
	EnsureSubnet(ctx context.Context, networkID string, alloc topology.SubnetAllocation) (string, error)

	// EnsureAccessPolicies materializes the access rules as one security
	// boundary per role and returns role -> boundary id.
	EnsureAccessPolicies(ctx context.Context, networkID, name string, rules []access.Rule) (map[access.Role]string, error)
}

// ComputeService provisions the control plane and worker node pools.
type ComputeService interface {
	// EnsureControlPlane ensures the managed control plane exists.
	EnsureControlPlane(ctx context.Context, name, version string, subnetIDs []string) (*ControlPlane, error)

	// ControlPlaneStatus reports the control plane lifecycle status.
	ControlPlaneStatus(ctx context.Context, name string) (string, error)

	// EnsureNodePool ensures a worker node pool and returns its id.
	EnsureNodePool(ctx context.Context, clusterName string, req NodePoolRequest) (string, error)
}

// DatastoreService provisions the managed data stores.
type DatastoreService interface {
	// EnsureRelationalStore ensures the HA relational store.
	EnsureRelationalStore(ctx context.Context, req RelationalRequest) (Endpoint, error)

	// EnsureCacheStore ensures the HA cache.
	EnsureCacheStore(ctx context.Context, req CacheRequest) (CacheEndpoints, error)
}

// IngressService provisions the externally reachable entry point.
type IngressService interface {
	// EnsureLoadBalancer ensures the ingress load balancer in the public
	// tier subnets.
	EnsureLoadBalancer(ctx context.Context, name string, subnetIDs []string, securityGroupID string) (*LoadBalancer, error)
}

// LogService provisions the log sink.
type LogService interface {
	// EnsureLogGroup ensures a log group with the given retention and
	// returns its identifier.
	EnsureLogGroup(ctx context.Context, name string, retentionDays int) (string, error)
}

// TeardownService removes provisioned resources during an explicit destroy.
// Every method is idempotent: deleting a resource that is already gone
// succeeds.
type TeardownService interface {
	DeleteLoadBalancer(ctx context.Context, id string) error
	DeleteNodePool(ctx context.Context, clusterName, poolID string) error
	DeleteControlPlane(ctx context.Context, name string) error
	DeleteRelationalStore(ctx context.Context, name string) error
	DeleteCacheStore(ctx context.Context, name string) error
	DeleteLogGroup(ctx context.Context, name string) error
	DeleteAccessPolicy(ctx context.Context, id string) error
	DeleteSubnet(ctx context.Context, id string) error
	DeleteNetwork(ctx context.Context, id string) error
}

// Provider bundles all cloud services used by the provisioning stages.
type Provider interface {
	Network() NetworkService
	Compute() ComputeService
	Datastore() DatastoreService
	Ingress() IngressService
	Logs() LogService
	Teardown() TeardownService
}
