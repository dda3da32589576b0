package matcher_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/matcher"
)

func newPrompt(models, servers, softprompts []string, maxLen, maxContentLen int) *domain.WaitingPrompt {
	p := domain.NewWaitingPrompt(nil, "p1", "owner", "hi", 1, models, nil, maxLen, maxContentLen, softprompts, servers, time.Now())
	return p
}

func newWorker(id, model string, maxLen, maxContentLen int, softprompts []string) *domain.Worker {
	w := domain.NewWorker(id, "worker-"+id, "owner")
	w.Model = model
	w.MaxLength = maxLen
	w.MaxContentLength = maxContentLen
	w.Softprompts = softprompts
	return w
}

func TestCanGenerate_ServerIDFilter(t *testing.T) {
	p := newPrompt(nil, []string{"other-id"}, []string{""}, 80, 2048)
	w := newWorker("worker-id", "llama", 80, 2048, nil)
	m := matcher.CanGenerate(w, p)
	assert.False(t, m.Eligible)
	assert.Equal(t, matcher.SkipServerID, m.SkipReason)
}

func TestCanGenerate_ModelsFilter(t *testing.T) {
	p := newPrompt([]string{"mistral"}, nil, []string{""}, 80, 2048)
	w := newWorker("w1", "llama", 80, 2048, nil)
	m := matcher.CanGenerate(w, p)
	assert.False(t, m.Eligible)
	assert.Equal(t, matcher.SkipModels, m.SkipReason)
}

func TestCanGenerate_MaxContentLengthFilter(t *testing.T) {
	p := newPrompt(nil, nil, []string{""}, 80, 4096)
	w := newWorker("w1", "llama", 80, 2048, nil)
	m := matcher.CanGenerate(w, p)
	assert.False(t, m.Eligible)
	assert.Equal(t, matcher.SkipMaxContentLength, m.SkipReason)
}

func TestCanGenerate_MaxLengthFilter(t *testing.T) {
	p := newPrompt(nil, nil, []string{""}, 160, 2048)
	w := newWorker("w1", "llama", 80, 2048, nil)
	m := matcher.CanGenerate(w, p)
	assert.False(t, m.Eligible)
	assert.Equal(t, matcher.SkipMaxLength, m.SkipReason)
}

func TestCanGenerate_SoftpromptFilter(t *testing.T) {
	p := newPrompt(nil, nil, []string{"story-teller"}, 80, 2048)
	w := newWorker("w1", "llama", 80, 2048, []string{"unrelated"})
	m := matcher.CanGenerate(w, p)
	assert.False(t, m.Eligible)
	assert.Equal(t, matcher.SkipMatchingSoftprompt, m.SkipReason)
}

func TestCanGenerate_SoftpromptMatch(t *testing.T) {
	p := newPrompt(nil, nil, []string{"story-teller"}, 80, 2048)
	w := newWorker("w1", "llama", 80, 2048, []string{"my-story-teller-v2"})
	m := matcher.CanGenerate(w, p)
	assert.True(t, m.Eligible)
	assert.Equal(t, "story-teller", m.MatchingSoftprompt)
}

func TestCanGenerate_EmptySoftpromptMatchesAny(t *testing.T) {
	p := newPrompt(nil, nil, []string{""}, 80, 2048)
	w := newWorker("w1", "llama", 80, 2048, nil)
	m := matcher.CanGenerate(w, p)
	assert.True(t, m.Eligible)
	assert.Empty(t, m.MatchingSoftprompt)
}

func TestAnyWorkerCouldServe_SkipsStaleWorkers(t *testing.T) {
	p := newPrompt(nil, nil, []string{""}, 80, 2048)
	w := newWorker("w1", "llama", 80, 2048, nil)
	// w never checked in, so it is stale and must not count.
	assert.False(t, matcher.AnyWorkerCouldServe([]*domain.Worker{w}, p, time.Now()))

	w.LastCheckIn = time.Now()
	assert.True(t, matcher.AnyWorkerCouldServe([]*domain.Worker{w}, p, time.Now()))
}

func TestPickPrompt_ReturnsFirstEligibleInOrder(t *testing.T) {
	w := newWorker("w1", "llama", 80, 2048, nil)
	w.LastCheckIn = time.Now()
	ineligible := newPrompt([]string{"mistral"}, nil, []string{""}, 80, 2048)
	eligible := newPrompt(nil, nil, []string{""}, 80, 2048)

	picked, _, lastSkip := matcher.PickPrompt(w, []*domain.WaitingPrompt{ineligible, eligible})
	assert.Same(t, eligible, picked)
	assert.Empty(t, lastSkip)
}

func TestPickPrompt_NoneEligibleReturnsLastSkipReason(t *testing.T) {
	w := newWorker("w1", "llama", 80, 2048, nil)
	p := newPrompt([]string{"mistral"}, nil, []string{""}, 80, 2048)

	picked, _, lastSkip := matcher.PickPrompt(w, []*domain.WaitingPrompt{p})
	assert.Nil(t, picked)
	assert.Equal(t, matcher.SkipModels, lastSkip)
}
