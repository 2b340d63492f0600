// Package infrastructure provisions the network topology and access
// policies: the virtual network, one subnet per (tier, zone), and the
// security boundaries derived from the access graph.
package infrastructure

import (
	"fmt"
	"strconv"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/topology"
)

const stage = "infrastructure"

// Provisioner applies the network and access-policy graph nodes.
type Provisioner struct{}

// NewProvisioner creates the infrastructure stage.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements provisioning.Stage.
func (p *Provisioner) Name() string {
	return stage
}

// Provision implements provisioning.Stage. Plan computation is pure and
// happens before any cloud call, so an unsatisfiable topology fails without
// creating anything.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	plan, err := topology.BuildPlan(ctx.Spec.AddressBlock, ctx.Spec.Zones)
	if err != nil {
		return err
	}
	if err := plan.Verify(); err != nil {
		return fmt.Errorf("address plan verification failed: %w", err)
	}

	rules, err := access.BuildRules()
	if err != nil {
		return err
	}

	ctx.State.Plan = plan
	ctx.State.Rules = rules

	if err := p.applyNetwork(ctx, plan); err != nil {
		return err
	}
	return p.applyAccessPolicies(ctx, rules)
}

func (p *Provisioner) applyNetwork(ctx *provisioning.Context, plan *topology.AddressPlan) error {
	hash, err := ctx.DesiredHash(provisioning.NodeNetwork)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeNetwork, hash, func() (map[string]string, error) {
		netID, err := ctx.Cloud.Network().EnsureNetwork(ctx, ctx.Spec.ClusterName, plan.AddressBlock)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure network: %w", err)
		}

		outputs := map[string]string{provisioning.OutNetworkID: netID}
		for _, alloc := range plan.Subnets {
			subnetID, err := ctx.Cloud.Network().EnsureSubnet(ctx, netID, alloc)
			if err != nil {
				return nil, fmt.Errorf("failed to ensure subnet %s/%s: %w", alloc.Tier, alloc.Zone, err)
			}
			outputs[provisioning.SubnetOutputKey(string(alloc.Tier), alloc.Zone)] = subnetID
		}
		return outputs, nil
	})
	if err != nil {
		return err
	}

	// Populate run state from node outputs so dependents see the same ids
	// whether the node was applied or skipped.
	node := ctx.Graph.Node(provisioning.NodeNetwork)
	ctx.State.NetworkID = node.Outputs[provisioning.OutNetworkID]
	for _, tier := range topology.Tiers {
		ids := make([]string, 0, len(plan.Zones))
		for _, zone := range plan.Zones {
			id := node.Outputs[provisioning.SubnetOutputKey(string(tier), zone)]
			if id == "" {
				return fmt.Errorf("network node is missing subnet id for %s/%s", tier, zone)
			}
			ids = append(ids, id)
		}
		ctx.State.SubnetIDs[tier] = ids
	}

	return nil
}

func (p *Provisioner) applyAccessPolicies(ctx *provisioning.Context, rules []access.Rule) error {
	hash, err := ctx.DesiredHash(provisioning.NodeAccessPolicy)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeAccessPolicy, hash, func() (map[string]string, error) {
		ids, err := ctx.Cloud.Network().EnsureAccessPolicies(ctx, ctx.State.NetworkID, ctx.Spec.ClusterName, rules)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure access policies: %w", err)
		}

		outputs := map[string]string{"rule_count": strconv.Itoa(len(rules))}
		for role, id := range ids {
			outputs["policy/"+string(role)] = id
		}
		return outputs, nil
	})
	if err != nil {
		return err
	}

	node := ctx.Graph.Node(provisioning.NodeAccessPolicy)
	for _, role := range []access.Role{access.RoleIngress, access.RoleCompute, access.RoleDatabase, access.RoleCache} {
		if id := node.Outputs["policy/"+string(role)]; id != "" {
			ctx.State.AccessPolicyIDs[role] = id
		}
	}

	return nil
}
