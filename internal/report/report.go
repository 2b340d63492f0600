// Package report renders the outputs of a completed provisioning run: the
// endpoints, connection templates, and identifiers an operator needs to use
// the cluster.
package report

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
)

// Output is the operator-facing result of a provisioning run. Credentials
// are never included; the database template carries placeholders instead.
type Output struct {
	ClusterName string `json:"cluster_name" yaml:"cluster_name"`
	Region      string `json:"region" yaml:"region"`

	ControlPlaneEndpoint string `json:"control_plane_endpoint" yaml:"control_plane_endpoint"`
	ControlPlaneCA       string `json:"control_plane_ca" yaml:"control_plane_ca"`
	BootstrapCommand     string `json:"bootstrap_command" yaml:"bootstrap_command"`

	DatabaseURLTemplate string `json:"database_url_template" yaml:"database_url_template"`
	CachePrimary        string `json:"cache_primary" yaml:"cache_primary"`
	CacheConfiguration  string `json:"cache_configuration" yaml:"cache_configuration"`

	IngressHostname string `json:"ingress_hostname" yaml:"ingress_hostname"`
	DNSHint         string `json:"dns_hint" yaml:"dns_hint"`
	CertificateInfo string `json:"certificate" yaml:"certificate"`

	NetworkID string              `json:"network_id" yaml:"network_id"`
	Subnets   map[string][]string `json:"subnets" yaml:"subnets"` // tier -> subnet ids in zone order

	LogGroupID string `json:"log_group_id" yaml:"log_group_id"`
}

// Build assembles the output from a provisioned graph. All referenced nodes
// must be in the applied state; a partially provisioned cluster has no
// usable output.
func Build(s *spec.Spec, g *graph.Graph) (*Output, error) {
	required := []string{
		provisioning.NodeNetwork,
		provisioning.NodeCompute,
		provisioning.NodeRelationalDB,
		provisioning.NodeCacheDB,
		provisioning.NodeIngress,
		provisioning.NodeCertProduction,
		provisioning.NodeObservability,
	}
	var missing []string
	for _, id := range required {
		if !g.Applied(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("cluster is not fully provisioned, pending nodes: %s", strings.Join(missing, ", "))
	}

	network := g.Node(provisioning.NodeNetwork)
	compute := g.Node(provisioning.NodeCompute)
	relational := g.Node(provisioning.NodeRelationalDB)
	cache := g.Node(provisioning.NodeCacheDB)
	ingress := g.Node(provisioning.NodeIngress)
	cert := g.Node(provisioning.NodeCertProduction)
	obs := g.Node(provisioning.NodeObservability)

	subnets := make(map[string][]string, len(topology.Tiers))
	for _, tier := range topology.Tiers {
		ids := make([]string, 0, len(s.Zones))
		for _, zone := range s.Zones {
			if id, ok := network.Outputs[provisioning.SubnetOutputKey(string(tier), zone)]; ok {
				ids = append(ids, id)
			}
		}
		subnets[string(tier)] = ids
	}

	lbHostname := ingress.Outputs[provisioning.OutIngressHostname]

	return &Output{
		ClusterName:          s.ClusterName,
		Region:               s.Region,
		ControlPlaneEndpoint: compute.Outputs[provisioning.OutControlPlaneAPI],
		ControlPlaneCA:       compute.Outputs[provisioning.OutControlPlaneCA],
		BootstrapCommand:     compute.Outputs[provisioning.OutBootstrapCmd],
		DatabaseURLTemplate:  databaseURLTemplate(relational),
		CachePrimary:         cache.Outputs[provisioning.OutCachePrimary],
		CacheConfiguration:   cache.Outputs[provisioning.OutCacheConfig],
		IngressHostname:      s.Ingress.Hostname,
		DNSHint:              fmt.Sprintf("point %s at %s (CNAME)", s.Ingress.Hostname, lbHostname),
		CertificateInfo:      certificateInfo(cert),
		NetworkID:            network.Outputs[provisioning.OutNetworkID],
		Subnets:              subnets,
		LogGroupID:           obs.Outputs[provisioning.OutLogGroupID],
	}, nil
}

// databaseURLTemplate renders the connection string with credential
// placeholders; real credentials never pass through the graph.
func databaseURLTemplate(n *graph.Node) string {
	return fmt.Sprintf("postgres://{username}:{password}@%s:%s/%s",
		n.Outputs[provisioning.OutEndpointHost],
		n.Outputs[provisioning.OutEndpointPort],
		n.Outputs[provisioning.OutDatabaseName])
}

func certificateInfo(n *graph.Node) string {
	state := n.Outputs[provisioning.OutCertState]
	if notAfter := n.Outputs[provisioning.OutCertNotAfter]; notAfter != "" {
		return fmt.Sprintf("%s, expires %s", state, notAfter)
	}
	return state
}

// Render marshals the output document for the CLI.
func (o *Output) Render() (string, error) {
	data, err := yaml.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to render output: %w", err)
	}
	return string(data), nil
}
