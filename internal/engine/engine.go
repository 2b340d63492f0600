// Package engine assembles the provisioning stages into dependency levels,
// arbitrates the per-cluster run lock, and persists the graph across runs.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/provisioning/compute"
	"github.com/cloudplane/cloudplane/internal/provisioning/datastore"
	"github.com/cloudplane/cloudplane/internal/provisioning/infrastructure"
	"github.com/cloudplane/cloudplane/internal/provisioning/ingress"
	"github.com/cloudplane/cloudplane/internal/provisioning/observability"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/store"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// Options configures an engine.
type Options struct {
	Spec     *spec.Spec
	Store    store.Store
	Provider cloud.Provider

	Observer provisioning.Observer
	Metrics  *provisioning.Metrics
	Timeouts *provisioning.Timeouts

	// Health optionally probes the control plane after creation.
	Health compute.HealthChecker

	// Installer optionally installs the telemetry collector.
	Installer observability.HelmInstaller

	// Issuers drive the certificate lifecycle. Nil issuers are replaced
	// by real ACME clients against the staging and production
	// directories.
	StagingIssuer    *ingress.Issuer
	ProductionIssuer *ingress.Issuer
}

// Engine runs provisioning operations against one cluster identity.
type Engine struct {
	opts Options
}

// New creates an engine. Missing ambient options get the defaults.
func New(opts Options) *Engine {
	if opts.Observer == nil {
		opts.Observer = provisioning.NewConsoleObserver()
	}
	if opts.Metrics == nil {
		opts.Metrics = provisioning.NopMetrics()
	}
	if opts.Timeouts == nil {
		opts.Timeouts = provisioning.DefaultTimeouts()
	}
	return &Engine{opts: opts}
}

// Apply runs a full dependency-ordered provisioning pass. The returned graph
// reflects the final node states even when the run failed partway; callers
// decide the process outcome from the error.
func (e *Engine) Apply(ctx context.Context) (*graph.Graph, error) {
	s := e.opts.Spec

	// Preflight is pure: an invalid spec or unsatisfiable address plan
	// fails here, before the lock is taken or anything is persisted.
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if _, err := provisioning.DesiredHashes(s); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := e.opts.Store.AcquireLock(ctx, s.ClusterName, runID); err != nil {
		return nil, err
	}
	defer func() {
		_ = e.opts.Store.ReleaseLock(context.WithoutCancel(ctx), s.ClusterName, runID)
	}()

	g, err := e.loadOrCreateGraph(ctx)
	if err != nil {
		return nil, err
	}
	registerNodes(g)

	pctx := provisioning.NewContext(ctx, runID, s, g, e.opts.Provider)
	pctx.Observer = e.opts.Observer
	pctx.Metrics = e.opts.Metrics
	pctx.Timeouts = e.opts.Timeouts

	runErr := e.runStages(pctx, e.levels(pctx))

	// The graph is persisted even when the run failed so the next apply
	// diffs against reality instead of re-creating blindly.
	if err := e.opts.Store.Save(context.WithoutCancel(ctx), g); err != nil {
		if runErr != nil {
			return g, errors.Join(runErr, fmt.Errorf("failed to persist graph: %w", err))
		}
		return g, fmt.Errorf("failed to persist graph: %w", err)
	}

	if runErr != nil {
		e.opts.Metrics.RunsTotal.WithLabelValues("failed").Inc()
		return g, runErr
	}
	e.opts.Metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	return g, nil
}

// runStages executes the stage levels, persisting the graph at every level
// boundary so a crash mid-run loses at most one level of progress.
func (e *Engine) runStages(pctx *provisioning.Context, levels [][]provisioning.Stage) error {
	for _, level := range levels {
		if err := provisioning.RunLevels(pctx, [][]provisioning.Stage{level}); err != nil {
			return err
		}
		if err := e.opts.Store.Save(context.WithoutCancel(pctx), pctx.Graph); err != nil {
			return fmt.Errorf("failed to persist graph: %w", err)
		}
	}
	return nil
}

// levels returns the dependency-ordered stage levels. Compute and datastore
// share a level: both depend only on the infrastructure outputs.
func (e *Engine) levels(pctx *provisioning.Context) [][]provisioning.Stage {
	staging := e.opts.StagingIssuer
	production := e.opts.ProductionIssuer
	if staging == nil || production == nil {
		// The solver publishes into the cluster, which does not exist
		// until the compute level completes; resolve the client lazily
		// from the run state.
		publisher := &clusterPublisher{state: pctx.State, hostname: e.opts.Spec.Ingress.Hostname}
		if staging == nil {
			staging = ingress.NewIssuer(ingress.NewClient(ingress.StagingDirectoryURL, e.opts.Spec.Ingress.ContactEmail), publisher)
		}
		if production == nil {
			production = ingress.NewIssuer(ingress.NewClient(ingress.ProductionDirectoryURL, e.opts.Spec.Ingress.ContactEmail), publisher)
		}
	}

	return [][]provisioning.Stage{
		{infrastructure.NewProvisioner()},
		{compute.NewProvisioner(e.opts.Health), datastore.NewProvisioner()},
		{ingress.NewProvisioner(staging, production)},
		{observability.NewProvisioner(e.opts.Installer)},
	}
}

func (e *Engine) loadOrCreateGraph(ctx context.Context) (*graph.Graph, error) {
	g, err := e.opts.Store.Load(ctx, e.opts.Spec.ClusterName)
	if errors.Is(err, store.ErrNotFound) {
		return graph.New(e.opts.Spec.ClusterName), nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// registerNodes ensures every node and edge exists before stages run, so
// concurrent stages never grow the node map.
func registerNodes(g *graph.Graph) {
	g.Ensure(provisioning.NodeNetwork, graph.KindNetwork)
	g.Ensure(provisioning.NodeAccessPolicy, graph.KindAccessPolicy)
	g.Ensure(provisioning.NodeCompute, graph.KindCompute)
	g.Ensure(provisioning.NodeRelationalDB, graph.KindDatastore)
	g.Ensure(provisioning.NodeCacheDB, graph.KindDatastore)
	g.Ensure(provisioning.NodeIngress, graph.KindIngress)
	g.Ensure(provisioning.NodeCertStaging, graph.KindCertificate)
	g.Ensure(provisioning.NodeCertProduction, graph.KindCertificate)
	g.Ensure(provisioning.NodeObservability, graph.KindObservability)

	g.DependOn(provisioning.NodeAccessPolicy, provisioning.NodeNetwork)
	g.DependOn(provisioning.NodeCompute, provisioning.NodeAccessPolicy)
	g.DependOn(provisioning.NodeRelationalDB, provisioning.NodeAccessPolicy)
	g.DependOn(provisioning.NodeCacheDB, provisioning.NodeAccessPolicy)
	g.DependOn(provisioning.NodeIngress, provisioning.NodeCompute)
	g.DependOn(provisioning.NodeIngress, provisioning.NodeRelationalDB)
	g.DependOn(provisioning.NodeIngress, provisioning.NodeCacheDB)
	g.DependOn(provisioning.NodeCertStaging, provisioning.NodeIngress)
	g.DependOn(provisioning.NodeCertProduction, provisioning.NodeCertStaging)
	g.DependOn(provisioning.NodeObservability, provisioning.NodeCertProduction)
}

