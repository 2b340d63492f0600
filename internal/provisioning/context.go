package provisioning

import (
	"context"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// Context wraps all dependencies and state a provisioning stage needs.
type Context struct {
	context.Context

	RunID    string
	Spec     *spec.Spec
	Graph    *graph.Graph
	State    *State
	Cloud    cloud.Provider
	Observer Observer
	Timeouts *Timeouts
	Metrics  *Metrics
}

// NewContext creates a provisioning context for one run.
func NewContext(ctx context.Context, runID string, s *spec.Spec, g *graph.Graph, provider cloud.Provider) *Context {
	return &Context{
		Context:  ctx,
		RunID:    runID,
		Spec:     s,
		Graph:    g,
		State:    NewState(),
		Cloud:    provider,
		Observer: NewConsoleObserver(),
		Timeouts: DefaultTimeouts(),
		Metrics:  NopMetrics(),
	}
}
