package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	g := New("test")
	first := g.Ensure("network", KindNetwork)
	first.MarkApplied(map[string]string{"id": "net-1"})

	second := g.Ensure("network", KindNetwork)
	assert.Same(t, first, second)
	assert.Equal(t, StateApplied, second.State)
	assert.Equal(t, "net-1", second.Outputs["id"])
}

func TestNeedsApply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		state    State
		hash     string
		desired  string
		expected bool
	}{
		{name: "pending node", state: StatePending, desired: "h1", expected: true},
		{name: "failed node", state: StateFailed, hash: "h1", desired: "h1", expected: true},
		{name: "applied unchanged", state: StateApplied, hash: "h1", desired: "h1", expected: false},
		{name: "applied changed", state: StateApplied, hash: "h1", desired: "h2", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := &Node{ID: "n", State: tt.state, SpecHash: tt.hash}
			assert.Equal(t, tt.expected, n.NeedsApply(tt.desired))
		})
	}
}

func TestNodeLifecycle(t *testing.T) {
	t.Parallel()

	g := New("test")
	n := g.Ensure("compute", KindCompute)

	n.MarkApplying("h1")
	assert.Equal(t, StateApplying, n.State)
	assert.Equal(t, "h1", n.SpecHash)

	n.MarkFailed(errors.New("quota exceeded"))
	assert.Equal(t, StateFailed, n.State)
	assert.Equal(t, "quota exceeded", n.Error)

	n.MarkApplying("h1")
	assert.Empty(t, n.Error, "re-applying clears the previous error")

	n.MarkApplied(map[string]string{"endpoint": "https://example"})
	assert.Equal(t, StateApplied, n.State)
	assert.False(t, n.AppliedAt.IsZero())
	assert.Equal(t, "https://example", n.Outputs["endpoint"])
}

func TestApplied(t *testing.T) {
	t.Parallel()

	g := New("test")
	g.Ensure("a", KindNetwork).MarkApplied(nil)
	g.Ensure("b", KindCompute)

	assert.True(t, g.Applied("a"))
	assert.False(t, g.Applied("a", "b"))
	assert.False(t, g.Applied("missing"))
}

func TestDependOnDeduplicates(t *testing.T) {
	t.Parallel()

	g := New("test")
	g.DependOn("b", "a")
	g.DependOn("b", "a")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, Edge{From: "b", To: "a"}, g.Edges[0])
}

func TestFailedNodesSorted(t *testing.T) {
	t.Parallel()

	g := New("test")
	g.Ensure("z", KindCompute).MarkFailed(errors.New("boom"))
	g.Ensure("a", KindNetwork).MarkFailed(errors.New("boom"))
	g.Ensure("m", KindIngress).MarkApplied(nil)

	failed := g.FailedNodes()
	require.Len(t, failed, 2)
	assert.Equal(t, "a", failed[0].ID)
	assert.Equal(t, "z", failed[1].ID)
}
