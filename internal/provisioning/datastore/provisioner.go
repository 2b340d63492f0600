// Package datastore provisions the managed HA relational store and cache in
// their isolated data-tier subnets.
package datastore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/internal/util/async"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

const stage = "datastore"

// Provisioner applies the relational and cache graph nodes.
type Provisioner struct{}

// NewProvisioner creates the datastore stage.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements provisioning.Stage.
func (p *Provisioner) Name() string {
	return stage
}

// Provision implements provisioning.Stage. The two stores are independent
// and run in parallel; the stage fails if either one does.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	// The store invariants were validated at load time; check them again
	// here so a hand-edited graph or spec cannot reach the cloud with an
	// unencrypted or single-zone data store.
	if err := p.preflight(ctx.Spec); err != nil {
		return err
	}

	return async.RunParallel(ctx, []async.Task{
		{Name: "relational store", Func: func(context.Context) error { return p.applyRelational(ctx) }},
		{Name: "cache store", Func: func(context.Context) error { return p.applyCache(ctx) }},
	})
}

func (p *Provisioner) preflight(s *spec.Spec) error {
	if s.Database.EncryptionKeyRef == "" {
		return &provisioning.DatastoreError{Kind: spec.KindRelational, Err: fmt.Errorf("encryption key reference is required")}
	}
	if s.Cache.EncryptionKeyRef == "" {
		return &provisioning.DatastoreError{Kind: spec.KindCache, Err: fmt.Errorf("encryption key reference is required")}
	}
	if len(s.Zones) < 2 {
		if s.Database.MultiZoneFailover {
			return &provisioning.DatastoreError{Kind: spec.KindRelational, Err: fmt.Errorf("multi-zone failover requires at least 2 zones, have %d", len(s.Zones))}
		}
		if s.Cache.MultiZoneFailover {
			return &provisioning.DatastoreError{Kind: spec.KindCache, Err: fmt.Errorf("multi-zone failover requires at least 2 zones, have %d", len(s.Zones))}
		}
	}
	return nil
}

func (p *Provisioner) applyRelational(ctx *provisioning.Context) error {
	subnets := ctx.State.SubnetIDs[topology.TierDatabase]
	if len(subnets) == 0 {
		return &provisioning.DatastoreError{Kind: spec.KindRelational, Err: fmt.Errorf("no database subnets available")}
	}

	hash, err := ctx.DesiredHash(provisioning.NodeRelationalDB)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeRelationalDB, hash, func() (map[string]string, error) {
		req := cloud.RelationalRequest{
			Name:                ctx.Spec.ClusterName + "-db",
			EngineVersion:       ctx.Spec.Database.EngineVersion,
			InstanceClass:       ctx.Spec.Database.InstanceClass,
			StorageGB:           ctx.Spec.Database.StorageGB,
			DatabaseName:        ctx.Spec.Database.DatabaseName,
			MultiZoneFailover:   ctx.Spec.Database.MultiZoneFailover,
			EncryptionKeyRef:    ctx.Spec.Database.EncryptionKeyRef,
			BackupRetentionDays: ctx.Spec.Database.BackupRetentionDays,
			BackupWindow:        ctx.Spec.Database.BackupWindow,
			SubnetIDs:           subnets,
			SecurityGroupID:     ctx.State.AccessPolicyIDs[access.RoleDatabase],
		}

		var endpoint cloud.Endpoint
		rerr := retry.WithExponentialBackoff(ctx, func() error {
			var err error
			endpoint, err = ctx.Cloud.Datastore().EnsureRelationalStore(ctx, req)
			return err
		})
		if rerr != nil {
			return nil, &provisioning.DatastoreError{Kind: spec.KindRelational, Err: rerr}
		}

		return map[string]string{
			provisioning.OutEndpointHost: endpoint.Host,
			provisioning.OutEndpointPort: strconv.Itoa(endpoint.Port),
			provisioning.OutDatabaseName: ctx.Spec.Database.DatabaseName,
		}, nil
	})
	if err != nil {
		return err
	}

	node := ctx.Graph.Node(provisioning.NodeRelationalDB)
	port, _ := strconv.Atoi(node.Outputs[provisioning.OutEndpointPort])
	ctx.State.RelationalEndpoint = cloud.Endpoint{
		Host: node.Outputs[provisioning.OutEndpointHost],
		Port: port,
	}
	return nil
}

func (p *Provisioner) applyCache(ctx *provisioning.Context) error {
	subnets := ctx.State.SubnetIDs[topology.TierCache]
	if len(subnets) == 0 {
		return &provisioning.DatastoreError{Kind: spec.KindCache, Err: fmt.Errorf("no cache subnets available")}
	}

	hash, err := ctx.DesiredHash(provisioning.NodeCacheDB)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeCacheDB, hash, func() (map[string]string, error) {
		req := cloud.CacheRequest{
			Name:                  ctx.Spec.ClusterName + "-cache",
			EngineVersion:         ctx.Spec.Cache.EngineVersion,
			NodeType:              ctx.Spec.Cache.NodeType,
			ClusterCount:          ctx.Spec.Cache.ClusterCount,
			MultiZoneFailover:     ctx.Spec.Cache.MultiZoneFailover,
			EncryptionKeyRef:      ctx.Spec.Cache.EncryptionKeyRef,
			SnapshotRetentionDays: ctx.Spec.Cache.BackupRetentionDays,
			SnapshotWindow:        ctx.Spec.Cache.BackupWindow,
			SubnetIDs:             subnets,
			SecurityGroupID:       ctx.State.AccessPolicyIDs[access.RoleCache],
		}

		var endpoints cloud.CacheEndpoints
		rerr := retry.WithExponentialBackoff(ctx, func() error {
			var err error
			endpoints, err = ctx.Cloud.Datastore().EnsureCacheStore(ctx, req)
			return err
		})
		if rerr != nil {
			return nil, &provisioning.DatastoreError{Kind: spec.KindCache, Err: rerr}
		}

		return map[string]string{
			provisioning.OutCachePrimary: fmt.Sprintf("%s:%d", endpoints.Primary.Host, endpoints.Primary.Port),
			provisioning.OutCacheConfig:  fmt.Sprintf("%s:%d", endpoints.Configuration.Host, endpoints.Configuration.Port),
		}, nil
	})
	if err != nil {
		return err
	}

	node := ctx.Graph.Node(provisioning.NodeCacheDB)
	primary, perr := parseEndpoint(node.Outputs[provisioning.OutCachePrimary])
	if perr != nil {
		return &provisioning.DatastoreError{Kind: spec.KindCache, Err: perr}
	}
	config, cerr := parseEndpoint(node.Outputs[provisioning.OutCacheConfig])
	if cerr != nil {
		return &provisioning.DatastoreError{Kind: spec.KindCache, Err: cerr}
	}
	ctx.State.CacheEndpoints = cloud.CacheEndpoints{Primary: primary, Configuration: config}
	return nil
}
