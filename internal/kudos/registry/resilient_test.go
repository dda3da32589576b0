package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/khbroker/internal/kudos/registry"
)

type flakyUpstream struct {
	failuresRemaining int
	billions          float64
	calls             int
}

func (f *flakyUpstream) ParameterCount(context.Context, string) (float64, error) {
	f.calls++
	if f.failuresRemaining > 0 {
		f.failuresRemaining--
		return 0, errors.New("upstream unavailable")
	}
	return f.billions, nil
}

func TestResilient_ParameterCount_RetriesTransientFailures(t *testing.T) {
	upstream := &flakyUpstream{failuresRemaining: 2, billions: 7.0}
	r := registry.NewResilient(upstream, "test-resilient-retry", 5, time.Minute, time.Second, time.Millisecond, 10*time.Millisecond, 1.5)

	got, err := r.ParameterCount(context.Background(), "llama-7b")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
	assert.Equal(t, 3, upstream.calls)
}

func TestResilient_ParameterCount_GivesUpAfterMaxElapsedTime(t *testing.T) {
	upstream := &flakyUpstream{failuresRemaining: 1000, billions: 7.0}
	r := registry.NewResilient(upstream, "test-resilient-giveup", 1000, time.Minute, 20*time.Millisecond, time.Millisecond, 2*time.Millisecond, 1.5)

	_, err := r.ParameterCount(context.Background(), "llama-7b")
	assert.Error(t, err)
}

func TestResilient_ParameterCount_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	upstream := &flakyUpstream{failuresRemaining: 1000, billions: 7.0}
	r := registry.NewResilient(upstream, "test-resilient-breaker", 1, time.Hour, time.Millisecond, time.Millisecond, time.Millisecond, 1.5)

	_, err := r.ParameterCount(context.Background(), "llama-7b")
	assert.Error(t, err)

	callsBeforeOpen := upstream.calls
	_, err = r.ParameterCount(context.Background(), "llama-7b")
	assert.Error(t, err)
	assert.Equal(t, callsBeforeOpen, upstream.calls, "breaker should short-circuit without calling upstream again")
}
