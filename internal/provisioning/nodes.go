package provisioning

// Graph node identifiers. Each stage owns the nodes it applies; no two
// stages write the same node.
const (
	NodeNetwork        = "network"
	NodeAccessPolicy   = "access-policy"
	NodeCompute        = "compute"
	NodeRelationalDB   = "datastore/relational"
	NodeCacheDB        = "datastore/cache"
	NodeIngress        = "ingress"
	NodeCertStaging    = "certificate/staging"
	NodeCertProduction = "certificate/production"
	NodeObservability  = "observability"
)

// Well-known graph output keys consumed by the reporter and by dependent
// stages when a node was skipped on re-apply.
const (
	OutNetworkID        = "network_id"
	OutControlPlaneAPI  = "control_plane_endpoint"
	OutControlPlaneCA   = "control_plane_ca"
	OutBootstrapCmd     = "bootstrap_command"
	OutNodePoolID       = "node_pool_id"
	OutEndpointHost     = "endpoint_host"
	OutEndpointPort     = "endpoint_port"
	OutDatabaseName     = "database_name"
	OutCachePrimary     = "cache_primary"
	OutCacheConfig      = "cache_configuration"
	OutIngressHostname  = "ingress_hostname"
	OutIngressID        = "ingress_id"
	OutCertState        = "certificate_state"
	OutCertNotAfter     = "certificate_not_after"
	OutLogGroupID       = "log_group_id"
	OutCollectorRelease = "collector_release"
)

// SubnetOutputKey names the graph output key for one subnet id. Both the
// infrastructure stage (writer) and dependent stages (readers) use it.
func SubnetOutputKey(tier, zone string) string {
	return "subnet/" + tier + "/" + zone
}
