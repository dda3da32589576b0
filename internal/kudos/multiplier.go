package kudos

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// DefaultMultiplier is the fallback model_multiplier used when the
// external model-registry collaborator cannot resolve a model name.
const DefaultMultiplier = 1.0

// Multiplier resolves model_multiplier(model_name): a stats-memoised
// lookup against the external model-registry collaborator. lock/unlock
// must guard every access to stats.ModelMultipliers — callers sharing
// that map with other goroutines (the engine, whose stats object is
// also marshaled by the periodic snapshot writer) pass their own
// mutex's Lock/Unlock; callers with a private *domain.Stats may pass
// no-ops. The registry call itself always runs with the guard released
// (on both the cache-miss path and the post-lookup double-check), per
// §5's requirement that it never run while holding the index lock. A
// registry failure is not an error to the caller — it is recorded as
// DefaultMultiplier, matching §4.6.
func Multiplier(ctx context.Context, logger *slog.Logger, stats *domain.Stats, registry domain.ModelRegistry, model string, lock, unlock func()) float64 {
	lock()
	if v, ok := stats.ModelMultipliers[model]; ok {
		unlock()
		return v
	}
	unlock()

	billions, err := registry.ParameterCount(ctx, model)
	if err != nil {
		if logger != nil {
			logger.Warn("model registry lookup failed, defaulting multiplier", slog.String("model", model), slog.Any("err", err))
		}
		billions = DefaultMultiplier
	}

	lock()
	defer unlock()
	// Another goroutine may have filled the memo while the registry call
	// was in flight; prefer its result so concurrent misses for the same
	// model converge on one value.
	if v, ok := stats.ModelMultipliers[model]; ok {
		return v
	}
	stats.ModelMultipliers[model] = billions
	return billions
}
