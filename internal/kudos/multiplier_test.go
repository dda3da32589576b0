package kudos_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/kudos"
)

type fakeRegistry struct {
	billions float64
	err      error
	calls    int
}

func (f *fakeRegistry) ParameterCount(_ context.Context, _ string) (float64, error) {
	f.calls++
	return f.billions, f.err
}

func noop() {}

func TestMultiplier_CacheHitNeverCallsRegistry(t *testing.T) {
	stats := domain.NewStats()
	stats.ModelMultipliers["llama"] = 7.0
	reg := &fakeRegistry{billions: 99}

	got := kudos.Multiplier(context.Background(), nil, stats, reg, "llama", noop, noop)
	assert.Equal(t, 7.0, got)
	assert.Zero(t, reg.calls)
}

func TestMultiplier_MissFillsCache(t *testing.T) {
	stats := domain.NewStats()
	reg := &fakeRegistry{billions: 13}

	got := kudos.Multiplier(context.Background(), nil, stats, reg, "llama", noop, noop)
	require.Equal(t, 13.0, got)
	assert.Equal(t, 1, reg.calls)
	assert.Equal(t, 13.0, stats.ModelMultipliers["llama"])
}

func TestMultiplier_RegistryFailureDefaults(t *testing.T) {
	stats := domain.NewStats()
	reg := &fakeRegistry{err: errors.New("unreachable")}

	got := kudos.Multiplier(context.Background(), nil, stats, reg, "unknown-model", noop, noop)
	assert.Equal(t, kudos.DefaultMultiplier, got)
	assert.Equal(t, kudos.DefaultMultiplier, stats.ModelMultipliers["unknown-model"])
}

func TestMultiplier_ConcurrentMissesAreSerializedByCallerLock(t *testing.T) {
	var mu sync.Mutex
	stats := domain.NewStats()
	reg := &fakeRegistry{billions: 42}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := kudos.Multiplier(context.Background(), nil, stats, reg, "llama", mu.Lock, mu.Unlock)
			assert.Equal(t, 42.0, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 42.0, stats.ModelMultipliers["llama"])
}
