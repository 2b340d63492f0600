package provisioning

import (
	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// State holds the in-memory results of provisioning stages for one run. It
// is progressively populated as each stage completes and read by the stages
// that depend on earlier results. Concurrent stages write disjoint fields.
type State struct {
	// Topology results (populated by the infrastructure stage)
	Plan            *topology.AddressPlan
	Rules           []access.Rule
	NetworkID       string
	SubnetIDs       map[topology.Tier][]string // per tier, in zone order
	AccessPolicyIDs map[access.Role]string

	// Compute results (populated by the compute stage)
	ControlPlane *cloud.ControlPlane
	NodePoolID   string

	// Datastore results (populated by the datastore stage)
	RelationalEndpoint cloud.Endpoint
	CacheEndpoints     cloud.CacheEndpoints

	// Ingress results (populated by the ingress stage)
	LoadBalancer *cloud.LoadBalancer

	// Observability results (populated by the observability stage)
	LogGroupID string
}

// NewState creates an empty run state.
func NewState() *State {
	return &State{
		SubnetIDs:       make(map[topology.Tier][]string),
		AccessPolicyIDs: make(map[access.Role]string),
	}
}
