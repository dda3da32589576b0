// Package domain holds the core entities and error taxonomy of the
// matching-and-accounting engine: users, workers, prompts, generations,
// and the aggregate stats object, independent of any transport or
// storage adapter.
package domain

import "errors"

// Sentinel errors surfaced by the core. Adapters map these to transport
// status codes (see httpserver.writeError); callers should compare with
// errors.Is, never string-match Error().
var (
	// ErrNoEligibleWorker signals that a submitted prompt has no live
	// worker that could ever match it.
	ErrNoEligibleWorker = errors.New("no eligible worker for prompt")
	// ErrInsufficientKudos signals a transfer amount exceeding the
	// source balance.
	ErrInsufficientKudos = errors.New("not enough kudos")
	// ErrUnknownUser signals a lookup by api-key, username, or oauth-id
	// that found nothing.
	ErrUnknownUser = errors.New("unknown user")
	// ErrAnonymousForbidden signals anonymous access while disabled, or
	// anonymous acting as transfer source/destination.
	ErrAnonymousForbidden = errors.New("anonymous forbidden")
	// ErrSelfTransfer signals a transfer whose source equals its
	// destination.
	ErrSelfTransfer = errors.New("cannot transfer to self")
	// ErrStaleDispatch signals a worker posting a result for a
	// Generation no longer present in the index.
	ErrStaleDispatch = errors.New("stale dispatch")

	// ErrInvalidArgument signals a malformed or out-of-range request
	// that never reached any of the domain's bespoke error kinds above.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing prompt, generation, or worker.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a request that cannot proceed given the
	// current state of the target entity.
	ErrConflict = errors.New("conflict")
)
