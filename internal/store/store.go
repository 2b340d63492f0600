// Package store persists the provisioning graph between runs and guards
// cluster identities with a run-level lock.
//
// Only one provisioning run may be in flight against a given cluster at a
// time; a second concurrent run is rejected with ErrRunInProgress instead of
// being interleaved.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/spec"
)

// ErrRunInProgress is returned when a run lock is already held for the
// cluster.
var ErrRunInProgress = errors.New("another provisioning run is in progress for this cluster")

// ErrNotFound is returned by Load when no graph has been persisted yet.
var ErrNotFound = errors.New("no persisted provisioning graph found")

// Store persists provisioning graphs and arbitrates run locks.
type Store interface {
	// Load retrieves the last persisted graph for a cluster.
	// Returns ErrNotFound when the cluster has never been provisioned.
	Load(ctx context.Context, clusterName string) (*graph.Graph, error)

	// Save persists the graph, replacing any previous version.
	Save(ctx context.Context, g *graph.Graph) error

	// AcquireLock takes the run lock for a cluster. Returns
	// ErrRunInProgress when another run already holds it. The runID
	// identifies the holder for diagnostics.
	AcquireLock(ctx context.Context, clusterName, runID string) error

	// ReleaseLock releases the run lock. Releasing a lock held by a
	// different run is an error.
	ReleaseLock(ctx context.Context, clusterName, runID string) error
}

// Open constructs the store selected by the spec's state backend.
func Open(s *spec.Spec) (Store, error) {
	switch s.State.Backend {
	case "file":
		return NewFileStore(s.State.Path), nil
	case "s3":
		return NewS3Store(s.State.Bucket, s.State.Region, s.State.Endpoint)
	default:
		return nil, fmt.Errorf("unknown state backend %q", s.State.Backend)
	}
}
