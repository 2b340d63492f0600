// Package provisioning provides the shared engine types for cluster
// provisioning: the stage interface, run context, state, observer, and the
// dependency-levelled stage runner.
//
// Stage implementations live in subpackages:
//   - infrastructure/ for the address plan, subnets, and access policies
//   - compute/ for the control plane and worker node pool
//   - datastore/ for the managed relational store and cache
//   - ingress/ for the entry point and certificate lifecycle
//   - observability/ for the log sink and telemetry collector
package provisioning

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stage is one provisioning step. A stage owns a disjoint subset of graph
// nodes: it is the only writer of those nodes during a run.
type Stage interface {
	// Name returns the stage name used in events and error messages.
	Name() string

	// Provision applies the stage's desired state to the graph.
	Provision(ctx *Context) error
}

// RunLevels executes stages level by level. Stages within one level have no
// dependency on each other and run concurrently; a level only starts after
// the previous one completed in full. Cancellation is honored at level
// boundaries, not mid-stage, since most resource-creation calls are not
// safely abortable.
func RunLevels(ctx *Context, levels [][]Stage) error {
	start := time.Now()

	total := 0
	for _, level := range levels {
		total += len(level)
	}
	ctx.Observer.Printf("Starting provisioning run %s with %d stages...", ctx.RunID, total)

	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		if err := runLevel(ctx, level); err != nil {
			return err
		}
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func runLevel(ctx *Context, level []Stage) error {
	g, groupCtx := errgroup.WithContext(ctx)

	for _, stage := range level {
		g.Go(func() error {
			stageCtx := *ctx
			stageCtx.Context = groupCtx

			stageStart := time.Now()
			ctx.Observer.Event(Event{Type: EventStageStarted, Stage: stage.Name(), Timestamp: stageStart})

			if err := stage.Provision(&stageCtx); err != nil {
				ctx.Observer.Event(Event{Type: EventStageFailed, Stage: stage.Name(), Message: err.Error(), Timestamp: time.Now()})
				return fmt.Errorf("%s stage failed: %w", stage.Name(), err)
			}

			elapsed := time.Since(stageStart)
			ctx.Metrics.StageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())
			ctx.Observer.Event(Event{
				Type:      EventStageCompleted,
				Stage:     stage.Name(),
				Message:   fmt.Sprintf("completed in %v", elapsed.Round(time.Millisecond)),
				Timestamp: time.Now(),
			})
			return nil
		})
	}

	return g.Wait()
}

// ApplyNode wraps the standard node lifecycle around an apply function:
// skip when the node is applied with an unchanged spec hash, otherwise mark
// applying, run fn, and record the outcome. The outputs returned by fn are
// merged into the node.
func ApplyNode(ctx *Context, stage, nodeID, specHash string, fn func() (map[string]string, error)) error {
	node := ctx.Graph.Node(nodeID)
	if node == nil {
		return fmt.Errorf("graph node %s is not registered", nodeID)
	}

	if !node.NeedsApply(specHash) {
		ctx.Metrics.NodesTotal.WithLabelValues("skipped").Inc()
		ctx.Observer.Event(Event{Type: EventNodeSkipped, Stage: stage, Node: nodeID, Message: "unchanged, skipping"})
		return nil
	}

	node.MarkApplying(specHash)
	ctx.Observer.Event(Event{Type: EventNodeApplying, Stage: stage, Node: nodeID})

	outputs, err := fn()
	if err != nil {
		node.MarkFailed(err)
		ctx.Metrics.NodesTotal.WithLabelValues("failed").Inc()
		ctx.Observer.Event(Event{Type: EventNodeFailed, Stage: stage, Node: nodeID, Message: err.Error()})
		return err
	}

	node.MarkApplied(outputs)
	ctx.Metrics.NodesTotal.WithLabelValues("applied").Inc()
	ctx.Observer.Event(Event{Type: EventNodeApplied, Stage: stage, Node: nodeID})
	return nil
}
