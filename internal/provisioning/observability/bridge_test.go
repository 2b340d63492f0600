package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud/fake"
)

type fakeInstaller struct {
	err      error
	installs int

	release string
	chart   string
	version string
	values  map[string]any
}

func (f *fakeInstaller) InstallOrUpgrade(_ context.Context, releaseName, _, chartName, version string, values map[string]any) error {
	f.installs++
	f.release = releaseName
	f.chart = chartName
	f.version = version
	f.values = values
	return f.err
}

func newContext(t *testing.T, provider *fake.Provider) *provisioning.Context {
	t.Helper()

	s := &spec.Spec{
		ClusterName:  "demo",
		Region:       "us-east-1",
		AddressBlock: "10.0.0.0/16",
		Zones:        []string{"us-east-1a", "us-east-1b"},
		Observability: spec.ObservabilitySpec{
			LogRetentionDays: 30,
			MetricsBackend:   "https://metrics.example.com:4318",
		},
	}
	g := graph.New(s.ClusterName)
	g.Ensure(provisioning.NodeObservability, graph.KindObservability)
	return provisioning.NewContext(context.Background(), "run-1", s, g, provider)
}

func TestProvisionCreatesLogSinkAndCollector(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)
	installer := &fakeInstaller{}

	require.NoError(t, NewProvisioner(installer).Provision(ctx))

	assert.Equal(t, 30, provider.LogGroups["/cloudplane/demo"])
	assert.Equal(t, "log-group//cloudplane/demo", ctx.State.LogGroupID)

	node := ctx.Graph.Node(provisioning.NodeObservability)
	assert.Equal(t, graph.StateApplied, node.State)
	assert.Equal(t, collectorRelease, node.Outputs[provisioning.OutCollectorRelease])

	assert.Equal(t, 1, installer.installs)
	assert.Equal(t, collectorChart, installer.chart)
	assert.Equal(t, collectorVersion, installer.version)
}

func TestProvisionWithoutInstallerSkipsCollector(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)

	require.NoError(t, NewProvisioner(nil).Provision(ctx))

	node := ctx.Graph.Node(provisioning.NodeObservability)
	assert.Equal(t, graph.StateApplied, node.State)
	assert.NotContains(t, node.Outputs, provisioning.OutCollectorRelease)
	assert.NotEmpty(t, ctx.State.LogGroupID)
}

func TestProvisionFailsWhenCollectorInstallFails(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	ctx := newContext(t, provider)
	installer := &fakeInstaller{err: errors.New("chart not found")}

	err := NewProvisioner(installer).Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry collector")
	assert.Equal(t, graph.StateFailed, ctx.Graph.Node(provisioning.NodeObservability).State)
}

func TestProvisionWrapsLogGroupFailure(t *testing.T) {
	t.Parallel()

	provider := fake.NewProvider()
	cause := errors.New("access denied")
	provider.FailOn("EnsureLogGroup", retry.Fatal(cause))
	ctx := newContext(t, provider)

	err := NewProvisioner(nil).Provision(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, provider.Calls["EnsureLogGroup"])
}

func TestCollectorValuesWiresPipelines(t *testing.T) {
	t.Parallel()

	s := &spec.Spec{
		ClusterName: "demo",
		Region:      "us-east-1",
		Observability: spec.ObservabilitySpec{
			MetricsBackend: "https://metrics.example.com:4318",
		},
	}
	values := collectorValues(s, "log-group/demo")

	cfg, ok := values["config"].(map[string]any)
	require.True(t, ok)
	exporters, ok := cfg["exporters"].(map[string]any)
	require.True(t, ok)

	cw, ok := exporters["awscloudwatchlogs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "log-group/demo", cw["log_group_name"])
	assert.Equal(t, "us-east-1", cw["region"])

	assert.Contains(t, exporters, "otlphttp/metrics")
	assert.NotContains(t, exporters, "otlphttp/traces", "no trace backend configured")

	pipelines := cfg["service"].(map[string]any)["pipelines"].(map[string]any)
	logs := pipelines["logs"].(map[string]any)
	assert.Equal(t, []string{"awscloudwatchlogs"}, logs["exporters"])
	traces := pipelines["traces"].(map[string]any)
	assert.Empty(t, traces["exporters"])
}
