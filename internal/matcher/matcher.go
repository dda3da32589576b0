// Package matcher implements the scheduling decision (C5): given a
// checking-in worker and the prompt queue in priority order, decide
// which prompt, if any, the worker may serve next.
package matcher

import (
	"strings"
	"time"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// SkipReason tags why a single candidate prompt was rejected for a
// worker, for observability only — it never changes the outcome.
type SkipReason string

// The five eligibility checks, in the enumeration order §4.5 specifies;
// SkipReason is always the *last* failing check in this order.
const (
	SkipServerID            SkipReason = "server_id"
	SkipModels               SkipReason = "models"
	SkipMaxContentLength     SkipReason = "max_content_length"
	SkipMaxLength            SkipReason = "max_length"
	SkipMatchingSoftprompt   SkipReason = "matching_softprompt"
)

// Match is the outcome of evaluating one (worker, prompt) pair.
type Match struct {
	Eligible           bool
	MatchingSoftprompt string
	SkipReason         SkipReason
}

// CanGenerate evaluates whether worker w is eligible to serve prompt p,
// applying the five checks of §4.5 in order; when several fail, the
// reported SkipReason is the last of them. On the soft-prompt check,
// the first satisfying entry in p.Softprompts is reported as the
// matched softprompt, to be echoed back to the worker.
func CanGenerate(w *domain.Worker, p *domain.WaitingPrompt) Match {
	var skip SkipReason
	if len(p.Servers) > 0 && !contains(p.Servers, w.ID) {
		skip = SkipServerID
	}
	if len(p.Models) > 0 && !contains(p.Models, w.Model) {
		skip = SkipModels
	}
	if w.MaxContentLength < p.MaxContentLength {
		skip = SkipMaxContentLength
	}
	if w.MaxLength < p.MaxLength {
		skip = SkipMaxLength
	}
	result := func(sp string) Match {
		if skip != "" {
			return Match{SkipReason: skip}
		}
		return Match{Eligible: true, MatchingSoftprompt: sp}
	}
	for _, sp := range p.Softprompts {
		if sp == "" {
			return result("")
		}
		for _, have := range w.Softprompts {
			if strings.Contains(have, sp) {
				return result(sp)
			}
		}
	}
	return Match{SkipReason: SkipMatchingSoftprompt}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// AnyWorkerCouldServe reports whether at least one live worker could
// ever match p, regardless of current queue position — used at
// submission time to answer NoEligibleWorker without waiting for a
// check-in.
func AnyWorkerCouldServe(workers []*domain.Worker, p *domain.WaitingPrompt, now time.Time) bool {
	for _, w := range workers {
		if w.IsStale(now) {
			continue
		}
		if CanGenerate(w, p).Eligible {
			return true
		}
	}
	return false
}

// PickPrompt iterates candidates in priority order and returns the
// first one w can generate, plus the matched softprompt. The last
// skip reason observed across all candidates is returned for
// observability when nothing matches.
func PickPrompt(w *domain.Worker, candidates []*domain.WaitingPrompt) (prompt *domain.WaitingPrompt, matchingSoftprompt string, lastSkip SkipReason) {
	for _, p := range candidates {
		m := CanGenerate(w, p)
		if m.Eligible {
			return p, m.MatchingSoftprompt, ""
		}
		lastSkip = m.SkipReason
	}
	return nil, "", lastSkip
}
