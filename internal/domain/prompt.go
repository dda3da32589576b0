package domain

import (
	"log/slog"
	"time"
)

// MaxIterations is the hard cap applied to a caller's requested n at
// prompt construction; requests above this are silently clamped (with a
// warning logged, never to the caller).
const MaxIterations = 20

// PromptStaleAfter is the no-activity window past which a prompt is
// evicted by the janitor, cascading to its in-flight Generations.
const PromptStaleAfter = 600 * time.Second

// WaitingPrompt is one unit of submitted generation work: up to
// MaxIterations independent completions ("n"), dispatched one at a time
// to checking-in workers as ProcessingGenerations.
type WaitingPrompt struct {
	ID                string
	Seq               int64
	OwnerOAuthID      string
	Prompt            string
	Models            []string
	Params            map[string]any
	N                 int
	MaxLength         int
	MaxContentLength  int
	Softprompts       []string
	Servers           []string
	ProcessingGens    []*ProcessingGeneration
	TotalUsage        int64
	LastProcessTime   time.Time
	CreatedAt         time.Time
	active            bool
}

// NewWaitingPrompt constructs a prompt, clamping n to MaxIterations and
// logging a warning when it does. Construction alone does not register
// the prompt in any index and does not make it eligible for matching —
// call Activate once the caller has confirmed a worker could ever serve
// it, so the submission endpoint can report "no eligible worker"
// synchronously instead of leaving a permanently-stuck entry.
func NewWaitingPrompt(logger *slog.Logger, id, ownerOAuthID, prompt string, requestedN int, models []string, params map[string]any, maxLength, maxContentLength int, softprompts, servers []string, now time.Time) *WaitingPrompt {
	n := requestedN
	if n > MaxIterations {
		if logger != nil {
			logger.Warn("clamping requested iterations", slog.Int("requested", requestedN), slog.Int("clamped_to", MaxIterations), slog.String("prompt_id", id))
		}
		n = MaxIterations
	}
	if n < 1 {
		n = 1
	}
	return &WaitingPrompt{
		ID:               id,
		OwnerOAuthID:     ownerOAuthID,
		Prompt:           prompt,
		Models:           models,
		Params:           params,
		N:                n,
		MaxLength:        maxLength,
		MaxContentLength: maxContentLength,
		Softprompts:      softprompts,
		Servers:          servers,
		CreatedAt:        now,
		LastProcessTime:  now,
	}
}

// Activate marks the prompt eligible for matching. Until called, the
// matcher and the janitor must not observe this prompt — the caller is
// responsible for adding it to the prompt index only after Activate.
func (p *WaitingPrompt) Activate() { p.active = true }

// Active reports whether Activate has been called.
func (p *WaitingPrompt) Active() bool { return p.active }

// DispatchRecord is the tuple handed to a worker at check-in time.
type DispatchRecord struct {
	Payload    map[string]any
	Softprompt string
	ID         string
}

// StartGeneration binds a new ProcessingGeneration to worker, decrements
// the remaining iteration count, and refreshes the staleness clock. The
// caller must have already verified N > 0 under the same lock.
func (p *WaitingPrompt) StartGeneration(genID string, worker *Worker, matchingSoftprompt string, now time.Time) (*ProcessingGeneration, DispatchRecord) {
	gen := &ProcessingGeneration{
		ID:        genID,
		PromptID:  p.ID,
		WorkerID:  worker.ID,
		Model:     worker.Model,
		StartTime: now,
	}
	p.ProcessingGens = append(p.ProcessingGens, gen)
	p.N--
	p.LastProcessTime = now

	payload := make(map[string]any, len(p.Params)+2)
	for k, v := range p.Params {
		payload[k] = v
	}
	payload["n"] = 1
	payload["prompt"] = p.Prompt
	return gen, DispatchRecord{Payload: payload, Softprompt: matchingSoftprompt, ID: gen.ID}
}

// RecordUsage adds one completed Generation's chars to the prompt's
// consumption total and refreshes the staleness clock.
func (p *WaitingPrompt) RecordUsage(chars int64, now time.Time) {
	p.TotalUsage += chars
	p.LastProcessTime = now
}

// Completed reports whether every requested iteration has been
// dispatched and every dispatched Generation has produced text.
func (p *WaitingPrompt) Completed() bool {
	if p.N != 0 {
		return false
	}
	for _, g := range p.ProcessingGens {
		if !g.Completed() {
			return false
		}
	}
	return true
}

// Stale reports whether the prompt has gone PromptStaleAfter without a
// StartGeneration or RecordUsage event.
func (p *WaitingPrompt) Stale(now time.Time) bool {
	return now.Sub(p.LastProcessTime) > PromptStaleAfter
}

// InitialIterations returns n + len(processing_gens), the invariant
// quantity that must never exceed the clamped construction-time n.
func (p *WaitingPrompt) InitialIterations() int {
	return p.N + len(p.ProcessingGens)
}

// ProcessingGeneration is one in-flight or completed iteration of a
// WaitingPrompt, bound to exactly one worker at creation.
type ProcessingGeneration struct {
	ID         string
	PromptID   string
	WorkerID   string
	Model      string
	Generation string
	StartTime  time.Time
}

// Completed reports whether the worker has posted back non-empty text.
func (g *ProcessingGeneration) Completed() bool {
	return g.Generation != ""
}
