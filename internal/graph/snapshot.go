package graph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Zmugha1/sandi-bot/pkg/errors"
)

// Snapshot is the serialized node/edge form written for external
// inspection and visualization. It is overwritten wholesale on every
// rebuild, never diffed.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Snapshot returns the graph's deterministic serialized form
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Edges: g.Edges()}
}

// WriteSnapshot persists the graph to path atomically (temp file then
// rename), so a crash mid-write never leaves a torn snapshot.
func (g *Graph) WriteSnapshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewSnapshotFailed(path, err)
	}

	data, err := json.MarshalIndent(g.Snapshot(), "", "  ")
	if err != nil {
		return errors.NewSnapshotFailed(path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewSnapshotFailed(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewSnapshotFailed(path, err)
	}
	return nil
}

// ReadSnapshot loads a previously written snapshot file
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}
