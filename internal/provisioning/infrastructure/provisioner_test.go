package infrastructure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/pkg/cloud/fake"
)

func newContext(t *testing.T, provider *fake.Provider) *provisioning.Context {
	t.Helper()

	s := &spec.Spec{
		ClusterName:  "demo",
		Region:       "us-east-1",
		AddressBlock: "10.0.0.0/16",
		Zones:        []string{"us-east-1a", "us-east-1b", "us-east-1c"},
	}
	g := graph.New(s.ClusterName)
	g.Ensure(provisioning.NodeNetwork, graph.KindNetwork)
	g.Ensure(provisioning.NodeAccessPolicy, graph.KindAccessPolicy)

	return provisioning.NewContext(context.Background(), "run-1", s, g, provider)
}

func TestProvisionCreatesTopology(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)

	require.NoError(t, NewProvisioner().Provision(ctx))

	// One network, one subnet per (tier, zone).
	assert.Len(t, provider.Networks, 1)
	assert.Len(t, provider.Subnets, len(topology.Tiers)*3)
	assert.Len(t, provider.Rules, 4)

	assert.NotEmpty(t, ctx.State.NetworkID)
	for _, tier := range topology.Tiers {
		assert.Len(t, ctx.State.SubnetIDs[tier], 3, "tier %s", tier)
	}
	for _, role := range []access.Role{access.RoleIngress, access.RoleCompute, access.RoleDatabase, access.RoleCache} {
		assert.NotEmpty(t, ctx.State.AccessPolicyIDs[role], "role %s", role)
	}

	assert.Equal(t, graph.StateApplied, ctx.Graph.Node(provisioning.NodeNetwork).State)
	assert.Equal(t, graph.StateApplied, ctx.Graph.Node(provisioning.NodeAccessPolicy).State)
}

func TestProvisionSkipsUnchangedNodes(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)
	p := NewProvisioner()

	require.NoError(t, p.Provision(ctx))
	ensureCalls := provider.Calls["EnsureNetwork"]
	subnetCalls := provider.Calls["EnsureSubnet"]

	// Re-apply with an unchanged spec must not touch the cloud, but the run
	// state is still populated from the recorded node outputs.
	ctx.State = provisioning.NewState()
	require.NoError(t, p.Provision(ctx))

	assert.Equal(t, ensureCalls, provider.Calls["EnsureNetwork"])
	assert.Equal(t, subnetCalls, provider.Calls["EnsureSubnet"])
	assert.NotEmpty(t, ctx.State.NetworkID)
	assert.Len(t, ctx.State.SubnetIDs[topology.TierCompute], 3)
}

func TestProvisionFailsWithoutCloudCallsOnBadTopology(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)
	ctx.Spec.Zones = []string{"a", "b", "c", "d", "e"}

	err := NewProvisioner().Provision(ctx)
	require.Error(t, err)

	var addrErr *topology.AddressSpaceError
	assert.ErrorAs(t, err, &addrErr)
	assert.Empty(t, provider.Calls, "an unsatisfiable plan must fail before any cloud call")
}

func TestProvisionMarksNetworkFailed(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	provider.FailOn("EnsureSubnet", assert.AnError)
	ctx := newContext(t, provider)

	err := NewProvisioner().Provision(ctx)
	require.Error(t, err)
	assert.Equal(t, graph.StateFailed, ctx.Graph.Node(provisioning.NodeNetwork).State)
	assert.Equal(t, graph.StatePending, ctx.Graph.Node(provisioning.NodeAccessPolicy).State)
}
