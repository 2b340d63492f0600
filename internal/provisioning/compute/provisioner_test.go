package compute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud"
	"github.com/cloudplane/cloudplane/pkg/cloud/fake"
)

type healthFunc func(ctx context.Context, cp *cloud.ControlPlane) error

func (f healthFunc) Ready(ctx context.Context, cp *cloud.ControlPlane) error { return f(ctx, cp) }

func newContext(t *testing.T, provider *fake.Provider) *provisioning.Context {
	t.Helper()

	s := &spec.Spec{
		ClusterName:  "demo",
		Region:       "us-east-1",
		AddressBlock: "10.0.0.0/16",
		Zones:        []string{"us-east-1a", "us-east-1b"},
		Nodes: spec.NodeSpec{
			Min:            1,
			Desired:        3,
			Max:            5,
			InstanceShapes: []string{"m6i.large"},
			KubeVersion:    "1.31",
		},
	}
	g := graph.New(s.ClusterName)
	g.Ensure(provisioning.NodeCompute, graph.KindCompute)

	ctx := provisioning.NewContext(context.Background(), "run-1", s, g, provider)
	ctx.State.SubnetIDs[topology.TierCompute] = []string{"subnet-1", "subnet-2"}
	ctx.Timeouts.ControlPlanePoll = time.Millisecond
	return ctx
}

func TestProvisionBringsUpControlPlaneAndNodePool(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	provider.StatusSequence = []string{cloud.StatusCreating, cloud.StatusCreating}
	ctx := newContext(t, provider)

	probed := false
	p := NewProvisioner(healthFunc(func(_ context.Context, cp *cloud.ControlPlane) error {
		probed = true
		assert.NotEmpty(t, cp.Endpoint)
		return nil
	}))
	require.NoError(t, p.Provision(ctx))
	assert.True(t, probed, "readiness probe must run once the control plane is active")

	node := ctx.Graph.Node(provisioning.NodeCompute)
	assert.Equal(t, graph.StateApplied, node.State)
	assert.Contains(t, node.Outputs[provisioning.OutControlPlaneAPI], "demo")
	assert.Equal(t, "aws eks update-kubeconfig --region us-east-1 --name demo", node.Outputs[provisioning.OutBootstrapCmd])
	assert.NotEmpty(t, node.Outputs[provisioning.OutNodePoolID])

	require.NotNil(t, ctx.State.ControlPlane)
	assert.Equal(t, cloud.StatusActive, ctx.State.ControlPlane.Status)
	assert.Equal(t, node.Outputs[provisioning.OutNodePoolID], ctx.State.NodePoolID)

	pool, ok := provider.NodePools[ctx.State.NodePoolID]
	require.True(t, ok)
	assert.Equal(t, "demo-workers", pool.Name)
	assert.Equal(t, []string{"subnet-1", "subnet-2"}, pool.SubnetIDs)
	assert.Equal(t, 3, pool.Desired)
}

func TestProvisionRequiresComputeSubnets(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, fake.NewProvider())
	ctx.State.SubnetIDs = map[topology.Tier][]string{}

	err := NewProvisioner(nil).Provision(ctx)
	var compErr *provisioning.ComputeError
	require.ErrorAs(t, err, &compErr)
	assert.Contains(t, compErr.Reason, "no compute subnets")
}

func TestProvisionFailsWhenControlPlaneFails(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	provider.StatusSequence = []string{cloud.StatusFailed}
	ctx := newContext(t, provider)

	err := NewProvisioner(nil).Provision(ctx)
	var compErr *provisioning.ComputeError
	require.ErrorAs(t, err, &compErr)
	assert.Contains(t, compErr.Reason, "failed state")
	assert.Equal(t, graph.StateFailed, ctx.Graph.Node(provisioning.NodeCompute).State)
}

func TestProvisionTimesOutWaitingForReady(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	provider.StatusSequence = []string{cloud.StatusCreating}
	ctx := newContext(t, provider)
	ctx.Timeouts.ControlPlaneReady = 5 * time.Millisecond
	ctx.Timeouts.ControlPlanePoll = time.Hour

	err := NewProvisioner(nil).Provision(ctx)
	var timeoutErr *provisioning.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "wait for control plane ready", timeoutErr.Op)
}

func TestProvisionWrapsEnsureFailure(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	cause := errors.New("api quota exceeded")
	provider.FailOn("EnsureControlPlane", retry.Fatal(cause))
	ctx := newContext(t, provider)

	err := NewProvisioner(nil).Provision(ctx)
	var compErr *provisioning.ComputeError
	require.ErrorAs(t, err, &compErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, provider.Calls["EnsureControlPlane"], "fatal errors must not be retried")
}

func TestProvisionFailsReadinessProbe(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, fake.NewProvider())
	p := NewProvisioner(healthFunc(func(context.Context, *cloud.ControlPlane) error {
		return errors.New("readyz returned 500")
	}))

	err := p.Provision(ctx)
	var compErr *provisioning.ComputeError
	require.ErrorAs(t, err, &compErr)
	assert.Contains(t, compErr.Reason, "readiness probe")
}
