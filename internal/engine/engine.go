// Package engine is the matching-and-accounting database: it owns the
// four indexes and the single coarse lock that gives the four
// composite operations of §5 (matching, result submission, transfer,
// snapshot) their required atomicity, and exposes the broker's
// operations to the transport layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/index"
	"github.com/fairyhunter13/khbroker/internal/kudos"
	"github.com/fairyhunter13/khbroker/internal/matcher"
)

// Engine holds the four indexes, the aggregate stats object, and the
// coarse lock serialising the composite operations of §5. Model-registry
// lookups always happen outside this lock, per §5's explicit
// requirement.
type Engine struct {
	mu sync.Mutex

	logger   *slog.Logger
	clock    domain.Clock
	registry domain.ModelRegistry

	users       *index.UserIndex
	workers     *index.Index[*domain.Worker]
	prompts     *index.PromptIndex
	generations *index.Index[*domain.ProcessingGeneration]
	stats       *domain.Stats

	lastUserID     int64
	promptSeq      int64
	allowAnonymous bool
}

// New constructs an Engine with empty indexes; callers load persisted
// state into it via LoadUsers, LoadWorkers and LoadStats before serving
// traffic.
func New(logger *slog.Logger, clock domain.Clock, registry domain.ModelRegistry, allowAnonymous bool) *Engine {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:         logger,
		clock:          clock,
		registry:       registry,
		users:          index.NewUserIndex(),
		workers:        index.New[*domain.Worker](),
		prompts:        index.NewPromptIndex(),
		generations:    index.New[*domain.ProcessingGeneration](),
		stats:          domain.NewStats(),
		allowAnonymous: allowAnonymous,
	}
	return e
}

// EnsureAnonymousUser creates the one distinguished anonymous user if
// absent; called both at startup (after loading persisted users) and
// lazily by any code path that must guarantee it exists.
func (e *Engine) EnsureAnonymousUser(now time.Time) *domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.users.Get(domain.AnonymousOAuthID); ok {
		return u
	}
	u := domain.NewUser(domain.AnonymousUserID, "anonymous", domain.AnonymousOAuthID, domain.AnonymousAPIKey, "", now)
	e.users.Add(domain.AnonymousOAuthID, u)
	return u
}

// CreateUser mints a new user with the next monotonic id.
func (e *Engine) CreateUser(username, oauthID, apiKey, inviteID string) *domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUserID++
	u := domain.NewUser(e.lastUserID, username, oauthID, apiKey, inviteID, e.clock.Now())
	e.users.Add(oauthID, u)
	return u
}

// seedLastUserID sets the id-allocation watermark; used by the
// persistence loader after restoring users from disk.
func (e *Engine) seedLastUserID(max int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > e.lastUserID {
		e.lastUserID = max
	}
}

// FindUserByOAuthID, FindUserByAPIKey, FindUserByUsername implement the
// identity lookups of §4.2 with the anonymous-access gate applied
// uniformly (see index.gate).
func (e *Engine) FindUserByOAuthID(oauthID string) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := e.users.ByOAuthID(oauthID, e.allowAnonymous)
	if u == nil {
		return nil, domain.ErrUnknownUser
	}
	return u, nil
}

func (e *Engine) FindUserByAPIKey(apiKey string) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := e.users.ByAPIKey(apiKey, e.allowAnonymous)
	if u == nil {
		return nil, domain.ErrUnknownUser
	}
	return u, nil
}

func (e *Engine) FindUserByUsername(alias string) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := e.users.ByUsername(alias, e.allowAnonymous)
	if u == nil {
		return nil, domain.ErrUnknownUser
	}
	return u, nil
}

// Transfer implements the kudos-transfer atomic composite operation.
func (e *Engine) Transfer(srcOAuthID, dstAlias string, amount float64) (kudos.TransferResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.users.ByOAuthID(srcOAuthID, e.allowAnonymous)
	dst := e.users.ByUsername(dstAlias, true)
	result, err := kudos.Transfer(src, dst, amount)
	if err == nil {
		observability.KudosTransferred.Add(result.Granted)
	}
	return result, err
}

// RegisterWorker inserts a worker record keyed by name; if one already
// exists under that name it is returned unchanged.
func (e *Engine) RegisterWorker(name, ownerOAuthID string) *domain.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers.Get(name); ok {
		return w
	}
	w := domain.NewWorker(uuid.NewString(), name, ownerOAuthID)
	e.workers.Add(name, w)
	return w
}

// CheckIn implements the worker check-in protocol (§4.3). It resolves
// the model multiplier via Multiplier(ctx, model) itself, before taking
// the lock.
func (e *Engine) CheckIn(ctx context.Context, name, ownerOAuthID, model string, maxLength, maxContentLength int, softprompts []string) (*domain.Worker, error) {
	multiplier := e.Multiplier(ctx, model)

	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workers.Get(name)
	if !ok {
		w = domain.NewWorker(uuid.NewString(), name, ownerOAuthID)
		e.workers.Add(name, w)
	}
	w.OwnerOAuthID = ownerOAuthID
	now := e.clock.Now()
	k, granted := w.CheckIn(now, model, maxLength, maxContentLength, softprompts, multiplier)
	if granted {
		if owner, ok := e.users.Get(ownerOAuthID); ok {
			owner.RecordUptime(k)
			observability.KudosMinted.Add(k)
		}
	}
	return w, nil
}

// Multiplier resolves model_multiplier(model). The registry call never
// runs while e.mu is held, per §5's requirement, but every read or
// write of the memo map underneath it is serialized on e.mu — the same
// map is marshaled concurrently by the periodic snapshot writer, so an
// unguarded access here would be a concurrent map read/write panic.
func (e *Engine) Multiplier(ctx context.Context, model string) float64 {
	return kudos.Multiplier(ctx, e.logger, e.stats, e.registry, model, e.mu.Lock, e.mu.Unlock)
}

// SubmitPrompt constructs and, if at least one live worker could ever
// serve it, activates and registers a WaitingPrompt; otherwise it
// returns ErrNoEligibleWorker without registering anything, so the
// submission endpoint can report failure synchronously.
func (e *Engine) SubmitPrompt(ownerOAuthID, text string, requestedN int, models []string, params map[string]any, maxLength, maxContentLength int, softprompts, servers []string) (*domain.WaitingPrompt, error) {
	now := e.clock.Now()
	id := uuid.NewString()
	p := domain.NewWaitingPrompt(e.logger, id, ownerOAuthID, text, requestedN, models, params, maxLength, maxContentLength, softprompts, servers, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	liveWorkers := e.workers.Values()
	if !matcher.AnyWorkerCouldServe(liveWorkers, p, now) {
		return nil, domain.ErrNoEligibleWorker
	}

	p.Activate()
	p.Seq = atomic.AddInt64(&e.promptSeq, 1)
	e.prompts.Add(p.ID, p)
	observability.QueueDepth.Set(float64(e.prompts.TotalPendingIterations()))
	return p, nil
}

// CheckInForWork runs the matcher (C5) for a checking-in worker: it
// picks the highest-priority eligible prompt, starts a Generation
// against it, and returns the dispatch record, implementing the
// matching atomic composite operation of §5.
func (e *Engine) CheckInForWork(workerName string) (*domain.DispatchRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.workers.Get(workerName)
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := e.clock.Now()
	if w.IsStale(now) {
		return nil, domain.ErrNotFound
	}

	kudosOf := func(oauthID string) float64 {
		if u, ok := e.users.Get(oauthID); ok {
			return u.Kudos
		}
		return 0
	}
	candidates := e.prompts.PendingByPriority(kudosOf)
	prompt, matchingSoftprompt, lastSkip := matcher.PickPrompt(w, candidates)
	if prompt == nil {
		outcome := "no_candidates"
		if lastSkip != "" {
			outcome = string(lastSkip)
		}
		observability.MatcherAttempts.WithLabelValues(outcome).Inc()
		return nil, nil
	}
	observability.MatcherAttempts.WithLabelValues("dispatched").Inc()

	gen, dispatch := prompt.StartGeneration(uuid.NewString(), w, matchingSoftprompt, now)
	e.generations.Add(gen.ID, gen)
	observability.QueueDepth.Set(float64(e.prompts.TotalPendingIterations()))
	return &dispatch, nil
}

// SubmitGeneration implements the result-submission atomic composite
// operation of §5: it stores the text, debits the submitting user,
// credits the fulfilling worker and its owner, and folds the
// observation into the global stats window. A post for a Generation no
// longer in the index is discarded cleanly per §7/P7.
func (e *Engine) SubmitGeneration(ctx context.Context, genID, text string) error {
	e.mu.Lock()
	gen, ok := e.generations.Get(genID)
	if !ok {
		e.mu.Unlock()
		return domain.ErrStaleDispatch
	}
	if gen.Completed() {
		e.mu.Unlock()
		return nil
	}
	model := gen.Model
	e.mu.Unlock()

	multiplier := e.Multiplier(ctx, model)

	e.mu.Lock()
	defer e.mu.Unlock()
	// Re-check under lock: the generation or its owning prompt may have
	// been evicted by the staleness janitor while the multiplier lookup
	// was in flight outside the lock.
	gen, ok = e.generations.Get(genID)
	if !ok || gen.Completed() {
		return nil
	}
	prompt, ok := e.prompts.Get(gen.PromptID)
	if !ok {
		return nil
	}
	// The workers index is keyed by name; the generation records the
	// worker's id, so find it by id.
	var worker *domain.Worker
	for _, w := range e.workers.Values() {
		if w.ID == gen.WorkerID {
			worker = w
			break
		}
	}
	if worker == nil {
		return fmt.Errorf("op=engine.SubmitGeneration: worker %s missing for generation %s", gen.WorkerID, genID)
	}
	owner, _ := e.users.Get(worker.OwnerOAuthID)
	submitter, _ := e.users.Get(prompt.OwnerOAuthID)

	now := e.clock.Now()
	gen.Generation = text
	chars := int64(len(text))
	k := kudos.ConvertCharsToKudos(chars, multiplier)
	seconds := int64(now.Sub(gen.StartTime).Seconds())

	perf := worker.RecordContribution(chars, k, seconds)
	e.stats.RecordFulfilmentTime(perf)
	if owner != nil {
		owner.RecordContributions(chars, k)
		observability.KudosMinted.Add(k)
	}
	prompt.RecordUsage(chars, now)
	if submitter != nil {
		submitter.RecordUsage(chars, k)
		observability.KudosBurned.Add(k)
	}
	return nil
}

// Status returns the get_status()-shaped payload for a prompt.
type Status struct {
	Done       bool
	Waiting    int
	Processing int
	Finished   int
	Generations []CompletedGeneration
}

// CompletedGeneration is one finished generation's text plus the name
// of the worker that produced it.
type CompletedGeneration struct {
	Text       string
	WorkerName string
}

// PromptStatus implements get_status() (supplemented feature).
func (e *Engine) PromptStatus(promptID string) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.prompts.Get(promptID)
	if !ok {
		return Status{}, domain.ErrNotFound
	}
	st := Status{Waiting: p.N}
	for _, g := range p.ProcessingGens {
		if g.Completed() {
			st.Finished++
			workerName := ""
			for _, w := range e.workers.Values() {
				if w.ID == g.WorkerID {
					workerName = w.Name
					break
				}
			}
			st.Generations = append(st.Generations, CompletedGeneration{Text: g.Generation, WorkerName: workerName})
		} else {
			st.Processing++
		}
	}
	st.Done = p.Completed()
	return st, nil
}

// CancelPrompt implements explicit, cooperative prompt cancellation; it
// is equivalent to the janitor's staleness eviction, invoked on demand.
func (e *Engine) CancelPrompt(promptID, ownerOAuthID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.prompts.Get(promptID)
	if !ok {
		return domain.ErrNotFound
	}
	if p.OwnerOAuthID != ownerOAuthID {
		return domain.ErrNotFound
	}
	e.deletePromptLocked(p)
	return nil
}

func (e *Engine) deletePromptLocked(p *domain.WaitingPrompt) {
	for _, g := range p.ProcessingGens {
		e.generations.Delete(g.ID)
	}
	e.prompts.Delete(p.ID)
	observability.QueueDepth.Set(float64(e.prompts.TotalPendingIterations()))
}

// AvailableModels implements get_available_models(): live workers
// grouped by declared model with a count each.
func (e *Engine) AvailableModels() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	out := map[string]int{}
	live := 0
	for _, w := range e.workers.Values() {
		if w.IsStale(now) {
			continue
		}
		out[w.Model]++
		live++
	}
	observability.WorkersLive.Set(float64(live))
	return out
}

// TopContributor and TopServer implement the original source's
// leaderboard queries over the user/worker indexes.
func (e *Engine) TopContributor() (*domain.User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var best *domain.User
	for _, u := range e.users.Values() {
		if u.IsAnonymous() {
			continue
		}
		if best == nil || u.Contributions.Chars > best.Contributions.Chars {
			best = u
		}
	}
	return best, best != nil
}

func (e *Engine) TopServer() (*domain.Worker, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var best *domain.Worker
	for _, w := range e.workers.Values() {
		if best == nil || w.Contributions > best.Contributions {
			best = w
		}
	}
	return best, best != nil
}

// CountActiveServers counts non-stale workers.
func (e *Engine) CountActiveServers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	n := 0
	for _, w := range e.workers.Values() {
		if !w.IsStale(now) {
			n++
		}
	}
	observability.WorkersLive.Set(float64(n))
	return n
}

// RequestAverage returns the rolling average of stats.fulfilment_times.
func (e *Engine) RequestAverage() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.RequestAverage()
}

// SweepStalePrompts implements the prompt-staleness janitor: it deletes
// every prompt whose last_process_time is beyond PromptStaleAfter,
// cascading to their Generations, and returns how many were evicted.
func (e *Engine) SweepStalePrompts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	evicted := 0
	for _, p := range e.prompts.Values() {
		if p.Stale(now) {
			e.deletePromptLocked(p)
			evicted++
		}
	}
	return evicted
}

// GrantKudos mints kudos directly to a user (admin faucet).
func (e *Engine) GrantKudos(oauthID string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users.Get(oauthID)
	if !ok {
		return domain.ErrUnknownUser
	}
	u.ModifyKudos(amount, domain.ActionAccumulated)
	observability.KudosMinted.Add(amount)
	return nil
}

// PurgeWorker removes a worker record (admin tool).
func (e *Engine) PurgeWorker(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers.Delete(name)
}
