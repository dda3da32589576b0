package index

import (
	"sort"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// PromptIndex specialises Index[*domain.WaitingPrompt] with the
// priority-ordering queries §4.1 requires over the prompt table.
type PromptIndex struct {
	*Index[*domain.WaitingPrompt]
}

// NewPromptIndex constructs an empty prompt index.
func NewPromptIndex() *PromptIndex {
	return &PromptIndex{Index: New[*domain.WaitingPrompt]()}
}

// CountWaitingFor returns the number of prompts owned by ownerOAuthID
// that are not yet completed.
func (pi *PromptIndex) CountWaitingFor(ownerOAuthID string) int {
	n := 0
	for _, p := range pi.Values() {
		if p.OwnerOAuthID == ownerOAuthID && !p.Completed() {
			n++
		}
	}
	return n
}

// TotalPendingIterations returns the sum of remaining n across every
// prompt in the index.
func (pi *PromptIndex) TotalPendingIterations() int {
	total := 0
	for _, p := range pi.Values() {
		total += p.N
	}
	return total
}

// KudosLookup resolves a prompt owner's current kudos balance for
// priority ordering; the caller supplies it (typically backed by the
// user index) so this package stays free of a dependency on user
// lookup mechanics.
type KudosLookup func(ownerOAuthID string) float64

// PendingByPriority returns every prompt with n > 0, sorted by the
// submitting user's current kudos descending, ties broken by insertion
// order (stable sort over Seq, the order prompts were added in).
func (pi *PromptIndex) PendingByPriority(kudosOf KudosLookup) []*domain.WaitingPrompt {
	all := pi.Values()
	pending := make([]*domain.WaitingPrompt, 0, len(all))
	for _, p := range all {
		if p.N > 0 {
			pending = append(pending, p)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		ki, kj := kudosOf(pending[i].OwnerOAuthID), kudosOf(pending[j].OwnerOAuthID)
		if ki != kj {
			return ki > kj
		}
		return pending[i].Seq < pending[j].Seq
	})
	return pending
}
