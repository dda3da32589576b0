// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/khbroker/internal/persistence"
)

// BuildReadinessCheck returns a readiness probe confirming the
// persistence directory is writable — the only external dependency a
// broker node has, since matching and accounting live entirely in
// memory.
func BuildReadinessCheck(store *persistence.Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if store == nil {
			return fmt.Errorf("persistence store not configured")
		}
		done := make(chan error, 1)
		go func() { done <- store.Writable() }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return fmt.Errorf("readiness check timed out")
		}
	}
}
