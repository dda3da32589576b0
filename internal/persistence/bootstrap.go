package persistence

import (
	"fmt"
	"time"

	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
	"github.com/fairyhunter13/khbroker/internal/engine"
)

// Bootstrap implements the startup ordering §6 mandates: load users
// first (so worker-owner links resolve), ensure the anonymous user
// exists, then load workers, then stats.
func Bootstrap(store *Store, e *engine.Engine, now time.Time) error {
	users, err := store.LoadUsers()
	if err != nil {
		return fmt.Errorf("op=persistence.Bootstrap: %w", err)
	}
	e.LoadUsers(users)
	e.EnsureAnonymousUser(now)

	workers, err := store.LoadWorkers()
	if err != nil {
		return fmt.Errorf("op=persistence.Bootstrap: %w", err)
	}
	e.LoadWorkers(workers)

	stats, err := store.LoadStats()
	if err != nil {
		return fmt.Errorf("op=persistence.Bootstrap: %w", err)
	}
	e.LoadStats(stats)
	return nil
}

// Snapshot writes the current engine state to disk: users, workers
// (anonymous-owned excluded by engine.SnapshotWorkers), and stats.
func Snapshot(store *Store, e *engine.Engine) error {
	start := time.Now()
	defer func() { observability.RecordSnapshotDuration(time.Since(start)) }()

	if err := store.SaveUsers(e.SnapshotUsers()); err != nil {
		return fmt.Errorf("op=persistence.Snapshot: %w", err)
	}
	if err := store.SaveWorkers(e.SnapshotWorkers()); err != nil {
		return fmt.Errorf("op=persistence.Snapshot: %w", err)
	}
	if err := store.SaveStats(e.SnapshotStats()); err != nil {
		return fmt.Errorf("op=persistence.Snapshot: %w", err)
	}
	return nil
}
