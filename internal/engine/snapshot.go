package engine

import "github.com/fairyhunter13/khbroker/internal/domain"

// SnapshotUsers returns every user currently in the index, for the
// persistence writer (C8). The anonymous user is included here —
// callers that must exclude it (workers, not users) do so themselves.
func (e *Engine) SnapshotUsers() []*domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.users.Values()
}

// SnapshotWorkers returns every worker currently in the index,
// excluding those owned by the anonymous user per §6/§7's persistence
// exclusion rule.
func (e *Engine) SnapshotWorkers() []*domain.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Worker, 0, e.workers.Len())
	for _, w := range e.workers.Values() {
		if w.OwnerOAuthID == domain.AnonymousOAuthID {
			continue
		}
		out = append(out, w)
	}
	return out
}

// SnapshotStats returns a copy of the current aggregate stats object,
// taken under the lock so the caller can marshal it without racing
// concurrent updates to the live window or multiplier map.
func (e *Engine) SnapshotStats() *domain.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := &domain.Stats{
		FulfilmentTimes:  append([]float64(nil), e.stats.FulfilmentTimes...),
		ModelMultipliers: make(map[string]float64, len(e.stats.ModelMultipliers)),
	}
	for k, v := range e.stats.ModelMultipliers {
		out.ModelMultipliers[k] = v
	}
	return out
}

// LoadUsers restores a set of users loaded from disk at startup, before
// any traffic is served, and seeds the id-allocation watermark from the
// maximum id observed.
func (e *Engine) LoadUsers(users []*domain.User) {
	e.mu.Lock()
	var maxID int64
	for _, u := range users {
		e.users.Add(u.OAuthID, u)
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	e.mu.Unlock()
	e.seedLastUserID(maxID)
}

// LoadWorkers restores a set of workers loaded from disk at startup.
// Owner links are re-resolved by oauth_id against the already-loaded
// user set, matching the "load users first" ordering §6 requires.
func (e *Engine) LoadWorkers(workers []*domain.Worker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range workers {
		e.workers.Add(w.Name, w)
	}
}

// LoadStats restores the aggregate stats object loaded from disk.
func (e *Engine) LoadStats(stats *domain.Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stats != nil {
		e.stats = stats
	}
}
