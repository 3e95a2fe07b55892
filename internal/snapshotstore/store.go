package snapshotstore

import (
	"path/filepath"
	"sync"

	"github.com/vk/ampbuild/internal/kconfig"
)

// Store caches kconfig snapshots by path and build outputs by unit name.
type Store struct {
	snapshots sync.Map // Key: cleaned path, Value: *kconfig.Snapshot
	artifacts sync.Map // Key: unit name, Value: []string
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Snapshot returns the cached snapshot of path, loading it on a miss.
// Load failures are not cached.
func (s *Store) Snapshot(path string) (*kconfig.Snapshot, error) {
	key := filepath.Clean(path)
	if v, ok := s.snapshots.Load(key); ok {
		return v.(*kconfig.Snapshot), nil
	}
	snap, err := kconfig.Load(key)
	if err != nil {
		return nil, err
	}
	actual, _ := s.snapshots.LoadOrStore(key, snap)
	return actual.(*kconfig.Snapshot), nil
}

// Invalidate drops the cached snapshot of path. Call it after the file was
// rewritten.
func (s *Store) Invalidate(path string) {
	s.snapshots.Delete(filepath.Clean(path))
}

// Cached reports whether path currently has a cached snapshot.
func (s *Store) Cached(path string) bool {
	_, ok := s.snapshots.Load(filepath.Clean(path))
	return ok
}

// SetArtifacts records the artifacts a unit produced.
func (s *Store) SetArtifacts(unit string, paths []string) {
	s.artifacts.Store(unit, append([]string(nil), paths...))
}

// Artifacts returns the recorded artifacts of a unit, nil if it was not built.
func (s *Store) Artifacts(unit string) []string {
	v, ok := s.artifacts.Load(unit)
	if !ok {
		return nil
	}
	return v.([]string)
}
