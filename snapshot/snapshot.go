// Package snapshot persists the locally cached segment membership between
// synchronization runs.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Snapshot is the persisted record of segment membership as of the last
// successful run. LastUpdated is nil until the first write.
type Snapshot struct {
	Profiles    []string   `json:"profiles"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Empty returns a snapshot with no members.
func Empty() Snapshot {
	return Snapshot{Profiles: []string{}}
}

// Contains reports whether the identity key is part of the snapshot.
func (s Snapshot) Contains(id string) bool {
	for _, p := range s.Profiles {
		if p == id {
			return true
		}
	}
	return false
}

// Members returns the snapshot's identity keys as a set.
func (s Snapshot) Members() map[string]struct{} {
	members := make(map[string]struct{}, len(s.Profiles))
	for _, p := range s.Profiles {
		members[p] = struct{}{}
	}
	return members
}

// Store reads and writes the snapshot file.
type Store struct {
	path   string
	logger *slog.Logger
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default().With("component", "snapshot"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted snapshot. Load never fails: a missing,
// unreadable, or corrupt file yields a fresh empty snapshot.
func (s *Store) Load() Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("snapshot unreadable, starting from empty", "path", s.path, "error", err)
		}
		return Empty()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot corrupt, starting from empty", "path", s.path, "error", err)
		return Empty()
	}
	if snap.Profiles == nil {
		snap.Profiles = []string{}
	}
	return snap
}

// Save persists the snapshot atomically via a temp file and rename.
// Profiles are deduplicated and sorted before writing, so a successfully
// written snapshot never contains duplicate keys.
func (s *Store) Save(snap Snapshot) error {
	snap.Profiles = dedupe(snap.Profiles)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
