package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudplane/cloudplane/internal/graph"
)

// FileStore persists graphs as JSON documents in a local state directory.
// The run lock is an O_EXCL lock file next to the graph document.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

type lockDocument struct {
	RunID      string    `json:"run_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func (f *FileStore) graphPath(clusterName string) string {
	return filepath.Join(f.dir, clusterName+".graph.json")
}

func (f *FileStore) lockPath(clusterName string) string {
	return filepath.Join(f.dir, clusterName+".lock")
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, clusterName string) (*graph.Graph, error) {
	data, err := os.ReadFile(f.graphPath(clusterName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}

	var g graph.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	if g.Schema != graph.SchemaVersion {
		return nil, fmt.Errorf("graph document schema %d is not supported (want %d)", g.Schema, graph.SchemaVersion)
	}

	return &g, nil
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, g *graph.Graph) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	g.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph document: %w", err)
	}

	// Write-then-rename so a crashed save never truncates the last good
	// document.
	tmp := f.graphPath(g.ClusterName) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write graph document: %w", err)
	}
	if err := os.Rename(tmp, f.graphPath(g.ClusterName)); err != nil {
		return fmt.Errorf("failed to replace graph document: %w", err)
	}

	return nil
}

// AcquireLock implements Store.
func (f *FileStore) AcquireLock(_ context.Context, clusterName, runID string) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	fh, err := os.OpenFile(f.lockPath(clusterName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrRunInProgress
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer fh.Close()

	doc := lockDocument{RunID: runID, AcquiredAt: time.Now().UTC()}
	if err := json.NewEncoder(fh).Encode(doc); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	return nil
}

// ReleaseLock implements Store.
func (f *FileStore) ReleaseLock(_ context.Context, clusterName, runID string) error {
	data, err := os.ReadFile(f.lockPath(clusterName))
	if err != nil {
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	var doc lockDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode lock file: %w", err)
	}
	if doc.RunID != runID {
		return fmt.Errorf("lock is held by run %s, not %s", doc.RunID, runID)
	}

	return os.Remove(f.lockPath(clusterName))
}
