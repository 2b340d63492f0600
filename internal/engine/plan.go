package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/store"
)

// Action is what apply would do with one graph node.
type Action string

// Plan actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionRetry  Action = "retry"
	ActionNone   Action = "up-to-date"
)

// PlanEntry is the planned action for one node.
type PlanEntry struct {
	NodeID string
	Kind   graph.Kind
	Action Action
}

// Plan computes what an apply would do without touching the cloud: it diffs
// the desired hashes against the persisted graph. Nothing is locked or
// persisted.
func (e *Engine) Plan(ctx context.Context) ([]PlanEntry, error) {
	s := e.opts.Spec
	if err := s.Validate(); err != nil {
		return nil, err
	}
	hashes, err := provisioning.DesiredHashes(s)
	if err != nil {
		return nil, err
	}

	g, err := e.opts.Store.Load(ctx, s.ClusterName)
	if errors.Is(err, store.ErrNotFound) {
		g = graph.New(s.ClusterName)
	} else if err != nil {
		return nil, err
	}
	registerNodes(g)

	entries := make([]PlanEntry, 0, len(nodeOrder))
	for _, id := range nodeOrder {
		node := g.Node(id)
		entries = append(entries, PlanEntry{NodeID: id, Kind: node.Kind, Action: planAction(node, hashes[id])})
	}
	return entries, nil
}

func planAction(n *graph.Node, desiredHash string) Action {
	switch {
	case n.State == graph.StateFailed:
		return ActionRetry
	case n.State != graph.StateApplied:
		return ActionCreate
	case n.SpecHash != desiredHash:
		return ActionUpdate
	default:
		return ActionNone
	}
}

// nodeOrder lists the graph nodes in apply order for stable plan and
// destroy output.
var nodeOrder = []string{
	provisioning.NodeNetwork,
	provisioning.NodeAccessPolicy,
	provisioning.NodeCompute,
	provisioning.NodeRelationalDB,
	provisioning.NodeCacheDB,
	provisioning.NodeIngress,
	provisioning.NodeCertStaging,
	provisioning.NodeCertProduction,
	provisioning.NodeObservability,
}

// RenderPlan formats plan entries for the CLI.
func RenderPlan(entries []PlanEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%-28s %-14s %s\n", e.NodeID, e.Kind, e.Action)
	}
	return b.String()
}
