// Package graph implements the provisioning graph: typed resource nodes and
// depends-on edges threaded through every provisioning stage.
//
// The graph is the only state shared across runs. It is persisted after a
// run so re-applying is a diff against the last-known graph instead of a
// blind re-create. Within a run, every node is written by exactly one stage;
// all nodes are registered before stages execute so concurrent stages never
// mutate the node map itself.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is bumped when the persisted graph document shape changes.
const SchemaVersion = 1

// Kind classifies a graph node by the resource it represents.
type Kind string

// Node kinds.
const (
	KindNetwork       Kind = "network"
	KindAccessPolicy  Kind = "access-policy"
	KindCompute       Kind = "compute"
	KindDatastore     Kind = "datastore"
	KindIngress       Kind = "ingress"
	KindCertificate   Kind = "certificate"
	KindObservability Kind = "observability"
)

// State is the lifecycle state of a graph node.
type State string

// Node states.
const (
	StatePending  State = "pending"
	StateApplying State = "applying"
	StateApplied  State = "applied"
	StateFailed   State = "failed"
)

// Node is one resource in the provisioning graph.
type Node struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	State     State             `json:"state"`
	SpecHash  string            `json:"spec_hash,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Error     string            `json:"error,omitempty"`
	AppliedAt time.Time         `json:"applied_at,omitzero"`
}

// Edge is a directed depends-on relation: From depends on To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the provisioning graph for one cluster identity.
type Graph struct {
	Schema      int              `json:"schema"`
	ClusterName string           `json:"cluster_name"`
	Nodes       map[string]*Node `json:"nodes"`
	Edges       []Edge           `json:"edges"`
	UpdatedAt   time.Time        `json:"updated_at,omitzero"`
}

// New creates an empty graph for the given cluster identity.
func New(clusterName string) *Graph {
	return &Graph{
		Schema:      SchemaVersion,
		ClusterName: clusterName,
		Nodes:       make(map[string]*Node),
	}
}

// Ensure registers a node if it does not exist yet and returns it. Existing
// nodes keep their state so a re-run can diff against the previous outcome.
func (g *Graph) Ensure(id string, kind Kind) *Node {
	if n, ok := g.Nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Kind: kind, State: StatePending, Outputs: make(map[string]string)}
	g.Nodes[id] = n
	return n
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// DependOn records that from depends on to. Duplicate edges are ignored.
func (g *Graph) DependOn(from, to string) {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return
		}
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// NeedsApply reports whether a node must be (re-)applied for the given
// desired spec hash. Applied nodes with an unchanged hash are skipped; this
// is what makes re-runs idempotent by construction.
func (n *Node) NeedsApply(specHash string) bool {
	return n.State != StateApplied || n.SpecHash != specHash
}

// MarkApplying transitions the node into the applying state.
func (n *Node) MarkApplying(specHash string) {
	n.State = StateApplying
	n.SpecHash = specHash
	n.Error = ""
}

// MarkApplied transitions the node into the applied state and merges the
// given outputs into the node's output fields.
func (n *Node) MarkApplied(outputs map[string]string) {
	n.State = StateApplied
	n.Error = ""
	n.AppliedAt = time.Now().UTC()
	if n.Outputs == nil {
		n.Outputs = make(map[string]string)
	}
	for k, v := range outputs {
		n.Outputs[k] = v
	}
}

// MarkFailed transitions the node into the failed state, recording the
// underlying cause. Dependents of a failed node are never attempted.
func (n *Node) MarkFailed(err error) {
	n.State = StateFailed
	n.Error = err.Error()
}

// Applied reports whether every listed node is in the applied state.
// Missing nodes count as not applied.
func (g *Graph) Applied(ids ...string) bool {
	for _, id := range ids {
		n := g.Nodes[id]
		if n == nil || n.State != StateApplied {
			return false
		}
	}
	return true
}

// FailedNodes returns all nodes in the failed state, ordered by id.
func (g *Graph) FailedNodes() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.State == StateFailed {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary renders a structured per-node state listing for run reports.
func (g *Graph) Summary() string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		n := g.Nodes[id]
		fmt.Fprintf(&b, "%-28s %-14s %s", n.ID, n.Kind, n.State)
		if n.Error != "" {
			fmt.Fprintf(&b, "  (%s)", n.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
