// Package persistence implements C8: load-on-start and periodic
// JSON-shaped snapshot of the user ledger, worker roster, and aggregate
// stats, matching the exact file layout of §6.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// Store reads and writes the three db/*.json files under dir.
type Store struct {
	dir string
}

// NewStore constructs a Store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("op=persistence.NewStore: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// Writable reports whether the persistence directory accepts writes,
// for the readiness check.
func (s *Store) Writable() error {
	probe := s.path(".writable-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("op=persistence.Store.Writable: %w", err)
	}
	return os.Remove(probe)
}

// LoadUsers reads users.json. A missing file is treated as empty; a
// malformed file is fatal, per §7 — the broker does not silently
// continue with a ledger it cannot trust.
func (s *Store) LoadUsers() ([]*domain.User, error) {
	var records []userRecord
	if err := readJSON(s.path("users.json"), &records); err != nil {
		return nil, fmt.Errorf("op=persistence.Store.LoadUsers: %w", err)
	}
	out := make([]*domain.User, 0, len(records))
	for _, r := range records {
		out = append(out, fromUserRecord(r))
	}
	return out, nil
}

// LoadWorkers reads servers.json.
func (s *Store) LoadWorkers() ([]*domain.Worker, error) {
	var records []workerRecord
	if err := readJSON(s.path("servers.json"), &records); err != nil {
		return nil, fmt.Errorf("op=persistence.Store.LoadWorkers: %w", err)
	}
	out := make([]*domain.Worker, 0, len(records))
	for _, r := range records {
		out = append(out, fromWorkerRecord(r))
	}
	return out, nil
}

// LoadStats reads stats.json. A missing file yields an empty Stats.
func (s *Store) LoadStats() (*domain.Stats, error) {
	var record statsRecord
	found, err := readJSONOptional(s.path("stats.json"), &record)
	if err != nil {
		return nil, fmt.Errorf("op=persistence.Store.LoadStats: %w", err)
	}
	if !found {
		return domain.NewStats(), nil
	}
	return fromStatsRecord(record), nil
}

// SaveUsers writes users.json, every user, anonymous included.
func (s *Store) SaveUsers(users []*domain.User) error {
	records := make([]userRecord, 0, len(users))
	for _, u := range users {
		records = append(records, toUserRecord(u))
	}
	return writeJSON(s.path("users.json"), records)
}

// SaveWorkers writes servers.json. Callers must already have excluded
// anonymous-owned workers (engine.SnapshotWorkers does this).
func (s *Store) SaveWorkers(workers []*domain.Worker) error {
	records := make([]workerRecord, 0, len(workers))
	for _, w := range workers {
		records = append(records, toWorkerRecord(w))
	}
	return writeJSON(s.path("servers.json"), records)
}

// SaveStats writes stats.json.
func (s *Store) SaveStats(stats *domain.Stats) error {
	return writeJSON(s.path("stats.json"), toStatsRecord(stats))
}

func readJSON(path string, v any) error {
	found, err := readJSONOptional(path, v)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return nil
}

func readJSONOptional(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("malformed persistence file %s: %w", path, err)
	}
	return true, nil
}

// writeJSON writes v to path atomically: it writes to a temp file in
// the same directory and renames, so a crash mid-write never leaves a
// half-written snapshot for the next startup to choke on.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("op=persistence.writeJSON: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("op=persistence.writeJSON: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("op=persistence.writeJSON: rename: %w", err)
	}
	return nil
}
