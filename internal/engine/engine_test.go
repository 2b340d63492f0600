package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/provisioning/ingress"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/store"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud/fake"
)

type fakeACME struct {
	err   error
	calls int
}

func (f *fakeACME) Obtain(context.Context, string, ingress.ChallengePublisher) (*ingress.IssuedCertificate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ingress.IssuedCertificate{
		ChainPEM: []byte("chain"),
		KeyPEM:   []byte("key"),
		NotAfter: time.Now().Add(90 * 24 * time.Hour).UTC(),
	}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string) error { return nil }
func (nopPublisher) Unpublish(context.Context, string) error       { return nil }

func validSpec() *spec.Spec {
	return &spec.Spec{
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
		Database: spec.DatastoreSpec{
			EngineVersion:       "16.4",
			InstanceClass:       "db.r6g.large",
			StorageGB:           100,
			MultiZoneFailover:   true,
			EncryptionKeyRef:    "alias/demo-data",
			BackupRetentionDays: 7,
			DatabaseName:        "app",
		},
		Cache: spec.DatastoreSpec{
			EngineVersion:       "7.1",
			NodeType:            "cache.r6g.large",
			ClusterCount:        2,
			MultiZoneFailover:   true,
			EncryptionKeyRef:    "alias/demo-data",
			BackupRetentionDays: 1,
		},
		Ingress: spec.IngressSpec{
			Hostname:     "app.example.com",
			ContactEmail: "ops@example.com",
		},
		Observability: spec.ObservabilitySpec{LogRetentionDays: 30},
		State:         spec.StateSpec{Backend: "file", Path: ".cloudplane"},
	}
}

type testEngine struct {
	*Engine
	spec     *spec.Spec
	store    store.Store
	provider *fake.Provider
	staging  *fakeACME
	prod     *fakeACME
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	s := validSpec()
	st := store.NewFileStore(t.TempDir())
	provider := fake.NewProvider()
	staging := &fakeACME{}
	prod := &fakeACME{}

	eng := New(Options{
		Spec:             s,
		Store:            st,
		Provider:         provider,
		StagingIssuer:    ingress.NewIssuer(staging, nopPublisher{}),
		ProductionIssuer: ingress.NewIssuer(prod, nopPublisher{}),
	})
	return &testEngine{Engine: eng, spec: s, store: st, provider: provider, staging: staging, prod: prod}
}

func TestApplyProvisionsEverything(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	g, err := te.Apply(context.Background())
	require.NoError(t, err)

	for _, id := range nodeOrder {
		assert.Equal(t, graph.StateApplied, g.Node(id).State, id)
	}

	// 2 zones, one subnet per tier and zone.
	assert.Len(t, te.provider.Networks, 1)
	assert.Len(t, te.provider.Subnets, len(topology.Tiers)*2)
	assert.Contains(t, te.provider.Relational, "demo-db")
	assert.Contains(t, te.provider.Caches, "demo-cache")
	assert.Contains(t, te.provider.LoadBalancers, "demo-ingress")
	assert.Contains(t, te.provider.LogGroups, "/cloudplane/demo")
	assert.Equal(t, 1, te.staging.calls)
	assert.Equal(t, 1, te.prod.calls)

	// The graph is persisted and the lock released.
	persisted, err := te.store.Load(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, graph.StateApplied, persisted.Node(provisioning.NodeObservability).State)
	assert.NoError(t, te.store.AcquireLock(context.Background(), "demo", "probe"))
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	_, err := te.Apply(context.Background())
	require.NoError(t, err)

	before := make(map[string]int, len(te.provider.Calls))
	for op, n := range te.provider.Calls {
		before[op] = n
	}

	_, err = te.Apply(context.Background())
	require.NoError(t, err)

	for _, op := range []string{"EnsureNetwork", "EnsureSubnet", "EnsureControlPlane", "EnsureNodePool", "EnsureRelationalStore", "EnsureCacheStore", "EnsureLoadBalancer", "EnsureLogGroup"} {
		assert.Equal(t, before[op], te.provider.Calls[op], op)
	}
	assert.Equal(t, 1, te.staging.calls)
	assert.Equal(t, 1, te.prod.calls)
}

func TestApplyRejectsInvalidSpecBeforeLocking(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.spec.Ingress.Hostname = ""

	_, err := te.Apply(context.Background())
	var verrs spec.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = te.store.Load(context.Background(), "demo")
	assert.ErrorIs(t, err, store.ErrNotFound, "an invalid spec must not persist anything")
	assert.Empty(t, te.provider.Calls)
}

func TestApplyRejectsUnsatisfiablePlanBeforeLocking(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.spec.Zones = []string{"a", "b", "c", "d", "e"}

	_, err := te.Apply(context.Background())
	var addrErr *topology.AddressSpaceError
	require.ErrorAs(t, err, &addrErr)

	_, err = te.store.Load(context.Background(), "demo")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, te.store.AcquireLock(context.Background(), "demo", "probe"), "preflight failures must not leave a lock behind")
}

func TestApplyRefusesConcurrentRun(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	require.NoError(t, te.store.AcquireLock(context.Background(), "demo", "other-run"))

	_, err := te.Apply(context.Background())
	assert.ErrorIs(t, err, store.ErrRunInProgress)
	assert.Empty(t, te.provider.Calls)
}

func TestApplyHaltsDependentsOnDatastoreFailure(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	cause := errors.New("storage quota exceeded")
	te.provider.FailOn("EnsureRelationalStore", retry.Fatal(cause))

	g, err := te.Apply(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, graph.StateFailed, g.Node(provisioning.NodeRelationalDB).State)
	assert.Equal(t, graph.StatePending, g.Node(provisioning.NodeIngress).State)
	assert.Equal(t, graph.StatePending, g.Node(provisioning.NodeObservability).State)
	assert.Zero(t, te.provider.Calls["EnsureLoadBalancer"])
	assert.Zero(t, te.staging.calls)

	// The partial graph is persisted so the next run resumes from it.
	persisted, perr := te.store.Load(context.Background(), "demo")
	require.NoError(t, perr)
	assert.Equal(t, graph.StateFailed, persisted.Node(provisioning.NodeRelationalDB).State)
	assert.Equal(t, graph.StateApplied, persisted.Node(provisioning.NodeNetwork).State)
}

func TestPlanActions(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)

	// Never provisioned: everything is a create.
	entries, err := te.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, len(nodeOrder))
	for _, e := range entries {
		assert.Equal(t, ActionCreate, e.Action, e.NodeID)
	}

	_, err = te.Apply(context.Background())
	require.NoError(t, err)

	entries, err = te.Plan(context.Background())
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ActionNone, e.Action, e.NodeID)
	}

	// A spec change shows up as an update on the affected node only.
	te.spec.Nodes.Desired = 4
	te.spec.Nodes.Max = 6
	entries, err = te.Plan(context.Background())
	require.NoError(t, err)
	for _, e := range entries {
		if e.NodeID == provisioning.NodeCompute {
			assert.Equal(t, ActionUpdate, e.Action)
		} else {
			assert.Equal(t, ActionNone, e.Action, e.NodeID)
		}
	}
}

func TestPlanMarksFailedNodesForRetry(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.provider.FailOn("EnsureCacheStore", retry.Fatal(errors.New("subnet group conflict")))
	_, err := te.Apply(context.Background())
	require.Error(t, err)

	entries, perr := te.Plan(context.Background())
	require.NoError(t, perr)
	for _, e := range entries {
		switch e.NodeID {
		case provisioning.NodeCacheDB:
			assert.Equal(t, ActionRetry, e.Action)
		case provisioning.NodeIngress, provisioning.NodeCertStaging, provisioning.NodeCertProduction, provisioning.NodeObservability:
			assert.Equal(t, ActionCreate, e.Action, e.NodeID)
		default:
			assert.Equal(t, ActionNone, e.Action, e.NodeID)
		}
	}
}

func TestDestroyRemovesEverything(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	_, err := te.Apply(context.Background())
	require.NoError(t, err)

	require.NoError(t, te.Destroy(context.Background()))

	assert.Empty(t, te.provider.Networks)
	assert.Empty(t, te.provider.Subnets)
	assert.Empty(t, te.provider.Policies)
	assert.Empty(t, te.provider.ControlPlanes)
	assert.Empty(t, te.provider.NodePools)
	assert.Empty(t, te.provider.Relational)
	assert.Empty(t, te.provider.Caches)
	assert.Empty(t, te.provider.LoadBalancers)
	assert.Empty(t, te.provider.LogGroups)

	persisted, err := te.store.Load(context.Background(), "demo")
	require.NoError(t, err)
	assert.Empty(t, persisted.Nodes)
}

func TestDestroyHaltsAndPersistsOnFailure(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	_, err := te.Apply(context.Background())
	require.NoError(t, err)

	te.provider.FailOn("DeleteRelationalStore", errors.New("deletion protection enabled"))
	err = te.Destroy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destroy halted at "+provisioning.NodeRelationalDB)

	// Everything torn down before the failure is gone from the graph; the
	// failed node and its dependencies remain for the next attempt.
	persisted, perr := te.store.Load(context.Background(), "demo")
	require.NoError(t, perr)
	assert.Nil(t, persisted.Node(provisioning.NodeObservability))
	assert.Nil(t, persisted.Node(provisioning.NodeIngress))
	assert.NotNil(t, persisted.Node(provisioning.NodeRelationalDB))
	assert.NotNil(t, persisted.Node(provisioning.NodeNetwork))
	assert.Contains(t, te.provider.Relational, "demo-db")
	assert.Empty(t, te.provider.LoadBalancers)
}

func TestDestroyWithoutGraphIsANoOp(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	require.NoError(t, te.Destroy(context.Background()))
	assert.Empty(t, te.provider.Calls)
}
