// Package kudos implements the kudos economy (C6): the arithmetic that
// links generated character counts and model size to ledger transfers,
// plus the model-size lookup chain that backs model_multiplier.
package kudos

import (
	"math"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// UptimeDivisor is the constant §4.3 divides the model multiplier by to
// derive a single uptime-reward grant.
const UptimeDivisor = 2.75

// ConvertCharsToKudos implements §4.6's
// round(chars * multiplier / 100, 2).
func ConvertCharsToKudos(chars int64, multiplier float64) float64 {
	return round2(float64(chars) * multiplier / 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TransferResult is the outcome of a kudos transfer attempt.
type TransferResult struct {
	Granted float64
	Reason  string
}

// Transfer implements §4.6's transfer(src, dst, amount): it returns the
// granted amount (0 on any failure) and a human-readable reason, and
// mutates src/dst ledgers only on success. The caller holds whatever
// lock is needed to make this atomic with respect to other transfers.
func Transfer(src, dst *domain.User, amount float64) (TransferResult, error) {
	switch {
	case dst == nil:
		return TransferResult{Reason: "Invalid target username."}, domain.ErrUnknownUser
	case dst.IsAnonymous():
		return TransferResult{Reason: "Tried to burn kudos via sending to Anonymous. Assuming PEBKAC and aborting."}, domain.ErrAnonymousForbidden
	case src == nil:
		return TransferResult{Reason: "Invalid target username."}, domain.ErrUnknownUser
	case src.OAuthID == dst.OAuthID:
		return TransferResult{Reason: "Cannot send kudos to yourself, ya monkey!"}, domain.ErrSelfTransfer
	case src.IsAnonymous():
		return TransferResult{Reason: "Anonymous cannot transfer kudos."}, domain.ErrAnonymousForbidden
	case amount > src.Kudos:
		return TransferResult{Reason: "Not enough kudos."}, domain.ErrInsufficientKudos
	}
	src.ModifyKudos(-amount, domain.ActionGifted)
	dst.ModifyKudos(amount, domain.ActionReceived)
	return TransferResult{Granted: amount, Reason: "OK"}, nil
}
