package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/store"
	"github.com/cloudplane/cloudplane/internal/topology"
)

// Destroy tears down every provisioned resource in reverse dependency
// order. Nodes are removed from the graph as their resources go away and
// the graph is persisted after each step, so an interrupted destroy resumes
// where it stopped.
func (e *Engine) Destroy(ctx context.Context) error {
	s := e.opts.Spec

	runID := uuid.NewString()
	if err := e.opts.Store.AcquireLock(ctx, s.ClusterName, runID); err != nil {
		return err
	}
	defer func() {
		_ = e.opts.Store.ReleaseLock(context.WithoutCancel(ctx), s.ClusterName, runID)
	}()

	g, err := e.opts.Store.Load(ctx, s.ClusterName)
	if errors.Is(err, store.ErrNotFound) {
		e.opts.Observer.Printf("Nothing to destroy: no provisioning graph for %s", s.ClusterName)
		return nil
	}
	if err != nil {
		return err
	}

	td := e.opts.Provider.Teardown()

	steps := []struct {
		node string
		fn   func(n *graph.Node) error
	}{
		{provisioning.NodeObservability, func(n *graph.Node) error {
			if id := n.Outputs[provisioning.OutLogGroupID]; id != "" {
				return td.DeleteLogGroup(ctx, id)
			}
			return nil
		}},
		// Certificates have no cloud resource of their own; dropping the
		// node forgets the lifecycle position.
		{provisioning.NodeCertProduction, func(*graph.Node) error { return nil }},
		{provisioning.NodeCertStaging, func(*graph.Node) error { return nil }},
		{provisioning.NodeIngress, func(n *graph.Node) error {
			if id := n.Outputs[provisioning.OutIngressID]; id != "" {
				return td.DeleteLoadBalancer(ctx, id)
			}
			return nil
		}},
		{provisioning.NodeCacheDB, func(*graph.Node) error {
			return td.DeleteCacheStore(ctx, s.ClusterName+"-cache")
		}},
		{provisioning.NodeRelationalDB, func(*graph.Node) error {
			return td.DeleteRelationalStore(ctx, s.ClusterName+"-db")
		}},
		{provisioning.NodeCompute, func(n *graph.Node) error {
			if id := n.Outputs[provisioning.OutNodePoolID]; id != "" {
				if err := td.DeleteNodePool(ctx, s.ClusterName, id); err != nil {
					return err
				}
			}
			return td.DeleteControlPlane(ctx, s.ClusterName)
		}},
		{provisioning.NodeAccessPolicy, func(n *graph.Node) error {
			for _, role := range []access.Role{access.RoleIngress, access.RoleCompute, access.RoleDatabase, access.RoleCache} {
				if id := n.Outputs["policy/"+string(role)]; id != "" {
					if err := td.DeleteAccessPolicy(ctx, id); err != nil {
						return err
					}
				}
			}
			return nil
		}},
		{provisioning.NodeNetwork, func(n *graph.Node) error {
			for _, tier := range topology.Tiers {
				for _, zone := range s.Zones {
					if id := n.Outputs[provisioning.SubnetOutputKey(string(tier), zone)]; id != "" {
						if err := td.DeleteSubnet(ctx, id); err != nil {
							return err
						}
					}
				}
			}
			if id := n.Outputs[provisioning.OutNetworkID]; id != "" {
				return td.DeleteNetwork(ctx, id)
			}
			return nil
		}},
	}

	for _, step := range steps {
		node := g.Node(step.node)
		if node == nil {
			continue
		}
		e.opts.Observer.Printf("Destroying %s...", step.node)
		if err := step.fn(node); err != nil {
			if serr := e.opts.Store.Save(context.WithoutCancel(ctx), g); serr != nil {
				return errors.Join(err, serr)
			}
			return fmt.Errorf("destroy halted at %s: %w", step.node, err)
		}
		delete(g.Nodes, step.node)
		if err := e.opts.Store.Save(context.WithoutCancel(ctx), g); err != nil {
			return fmt.Errorf("failed to persist graph: %w", err)
		}
	}

	e.opts.Observer.Printf("Destroyed cluster %s", s.ClusterName)
	return nil
}
