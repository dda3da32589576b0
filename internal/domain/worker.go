package domain

import "time"

// StaleWorkerAfter is the check-in silence threshold past which a
// worker is considered stale: ignored by the matcher and hidden from
// the available-models inventory, but never deleted outright.
const StaleWorkerAfter = 300 * time.Second

// UptimeRewardThreshold is the uptime-seconds gap that must elapse
// since the last uptime reward before another is granted.
const UptimeRewardThreshold = 600

// MaxPerformanceSamples bounds the rolling chars-per-second window kept
// per worker.
const MaxPerformanceSamples = 20

// Worker-side kudos ledger action keys.
const (
	ActionGenerated = "generated"
	ActionUptime    = "uptime"
)

// Worker is a declaration of generation capability from one untrusted,
// voluntarily-participating text-generation client, plus the liveness
// and performance history the matcher and kudos economy need.
type Worker struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	OwnerOAuthID      string    `json:"oauth_id"`
	Model             string    `json:"model"`
	MaxLength         int       `json:"max_length"`
	MaxContentLength  int       `json:"max_content_length"`
	Softprompts       []string  `json:"softprompts"`
	Contributions     int64     `json:"contributions"`
	Fulfilments       int64     `json:"fulfilments"`
	Kudos             float64   `json:"kudos"`
	KudosDetails      map[string]float64 `json:"kudos_details"`
	Performances      []float64 `json:"performances"`
	Uptime            int64     `json:"uptime"`
	LastRewardUptime  int64     `json:"last_reward_uptime"`
	LastCheckIn       time.Time `json:"last_check_in"`
}

// NewWorker constructs a Worker not yet checked in; IsStale reports
// true until the first CheckIn call.
func NewWorker(id, name, ownerOAuthID string) *Worker {
	return &Worker{
		ID:           id,
		Name:         name,
		OwnerOAuthID: ownerOAuthID,
		KudosDetails: map[string]float64{},
	}
}

// IsStale reports whether the worker has gone more than StaleWorkerAfter
// without a check-in, or has never checked in at all.
func (w *Worker) IsStale(now time.Time) bool {
	if w.LastCheckIn.IsZero() {
		return true
	}
	return now.Sub(w.LastCheckIn) > StaleWorkerAfter
}

// UptimeReward pairs an uptime kudos amount with whether the worker was
// live (vs. stale) at check-in. CheckIn returns its result as a plain
// (kudos, granted) pair and does not use this type.
type UptimeReward struct {
	Kudos   float64
	WasLive bool
}

// CheckIn applies the check-in protocol of the worker state machine:
// it accrues uptime seconds when the worker was live, restarts the
// reward clock across a stale gap, always overwrites the declared
// capability fields, and returns a non-zero uptime kudos grant when the
// reward threshold has elapsed since the last grant. modelMultiplier is
// model_multiplier(model) for the worker's *new* declared model, looked
// up by the caller outside any index lock.
func (w *Worker) CheckIn(now time.Time, model string, maxLength, maxContentLength int, softprompts []string, modelMultiplier float64) (kudos float64, grantedUptime bool) {
	wasStale := w.IsStale(now)
	if !wasStale {
		w.Uptime += int64(now.Sub(w.LastCheckIn).Seconds())
		if w.Uptime-w.LastRewardUptime > UptimeRewardThreshold {
			kudos = round2(modelMultiplier / 2.75)
			w.ModifyKudos(kudos, ActionUptime)
			w.LastRewardUptime = w.Uptime
			grantedUptime = true
		}
	} else {
		w.LastRewardUptime = w.Uptime
	}
	w.LastCheckIn = now
	w.Model = model
	w.MaxLength = maxLength
	w.MaxContentLength = maxContentLength
	w.Softprompts = softprompts
	return kudos, grantedUptime
}

// ModifyKudos applies a signed delta to the worker's own kudos ledger,
// with the same accumulated-vs-volume-counter asymmetry as User.ModifyKudos
// — worker ledgers have no "accumulated" bucket, so every bucket here
// (generated, uptime) is a volume counter and receives the absolute value.
func (w *Worker) ModifyKudos(delta float64, action string) {
	w.Kudos = round2(w.Kudos + delta)
	w.KudosDetails[action] = round2(w.KudosDetails[action] + absFloat(delta))
}

// RecordContribution folds one completed Generation's output into the
// worker's rolling performance window and ledger.
func (w *Worker) RecordContribution(chars int64, kudos float64, seconds int64) float64 {
	if seconds < 1 {
		seconds = 1
	}
	perf := round1(float64(chars) / float64(seconds))
	w.Performances = append(w.Performances, perf)
	if len(w.Performances) > MaxPerformanceSamples {
		w.Performances = w.Performances[len(w.Performances)-MaxPerformanceSamples:]
	}
	w.ModifyKudos(kudos, ActionGenerated)
	w.Contributions += chars
	w.Fulfilments++
	return perf
}

// HumanReadableUptime formats Uptime seconds the way an operator
// dashboard would: largest applicable unit, singular precision.
func (w *Worker) HumanReadableUptime() string {
	return humanDuration(w.Uptime)
}

func humanDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return itoaInt(seconds) + "s"
	case seconds < 3600:
		return itoaInt(seconds/60) + "m"
	case seconds < 86400:
		return itoaInt(seconds/3600) + "h"
	default:
		return itoaInt(seconds/86400) + "d"
	}
}
