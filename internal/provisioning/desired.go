package provisioning

import (
	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
)

// DesiredHashes computes the desired spec hash for every graph node from
// the spec alone. Stages and the plan preview share these formulas, so the
// diff printed before a run matches what apply will decide. Hash inputs are
// spec fragments, never provisioned ids: ids derive from the same fragments
// and would only echo them.
func DesiredHashes(s *spec.Spec) (map[string]string, error) {
	plan, err := topology.BuildPlan(s.AddressBlock, s.Zones)
	if err != nil {
		return nil, err
	}
	rules, err := access.BuildRules()
	if err != nil {
		return nil, err
	}

	type zoned struct {
		Fragment any
		Zones    []string
	}

	return map[string]string{
		NodeNetwork:        spec.Hash(plan),
		NodeAccessPolicy:   spec.Hash(rules),
		NodeCompute:        spec.Hash(zoned{s.Nodes, s.Zones}),
		NodeRelationalDB:   spec.Hash(zoned{s.Database, s.Zones}),
		NodeCacheDB:        spec.Hash(zoned{s.Cache, s.Zones}),
		NodeIngress:        spec.Hash(zoned{s.Ingress.Hostname, s.Zones}),
		NodeCertStaging:    spec.Hash(s.Ingress),
		NodeCertProduction: spec.Hash(s.Ingress),
		NodeObservability:  spec.Hash(s.Observability),
	}, nil
}

// DesiredHash returns the desired hash for one node id.
func (c *Context) DesiredHash(nodeID string) (string, error) {
	hashes, err := DesiredHashes(c.Spec)
	if err != nil {
		return "", err
	}
	return hashes[nodeID], nil
}
