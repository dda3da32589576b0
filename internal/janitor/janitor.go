// Package janitor implements the background liveness loops (C7): a
// single sweep of the prompt index for staleness, and a periodic
// snapshot writer. Per §9's explicit redesign note, staleness is swept
// by one shared ticker rather than one goroutine per prompt, and there
// is no explicit stale-worker reaper — worker staleness is computed
// lazily on every read.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
)

var tracer = otel.Tracer("khbroker.janitor")

// PromptSweepInterval is the fixed cadence of the staleness watcher.
const PromptSweepInterval = 10 * time.Second

// PromptSweeper periodically evicts stale prompts by calling sweep.
type PromptSweeper struct {
	interval time.Duration
	sweep    func() int
	logger   *slog.Logger
}

// NewPromptSweeper constructs a PromptSweeper. sweep should call
// engine.Engine.SweepStalePrompts and return the number evicted.
func NewPromptSweeper(logger *slog.Logger, sweep func() int) *PromptSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptSweeper{interval: PromptSweepInterval, sweep: sweep, logger: logger}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (s *PromptSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *PromptSweeper) sweepOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "janitor.sweep_stale_prompts")
	defer span.End()
	evicted := s.sweep()
	observability.JanitorSweeps.Inc()
	if evicted > 0 {
		observability.JanitorEvictions.Add(float64(evicted))
	}
	span.SetAttributes(attribute.Int("janitor.evicted", evicted))
	if evicted > 0 {
		s.logger.InfoContext(ctx, "evicted stale prompts", slog.Int("count", evicted))
	}
}

// SnapshotWriter periodically calls snapshot to persist broker state.
type SnapshotWriter struct {
	interval time.Duration
	snapshot func() error
	logger   *slog.Logger
}

// NewSnapshotWriter constructs a SnapshotWriter at the given interval
// (default 3s per §4.7 when interval <= 0).
func NewSnapshotWriter(logger *slog.Logger, interval time.Duration, snapshot func() error) *SnapshotWriter {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{interval: interval, snapshot: snapshot, logger: logger}
}

// Run blocks, snapshotting every interval until ctx is cancelled. The
// final snapshot on shutdown is the caller's responsibility (main.go
// calls snapshot once more after Run returns).
func (w *SnapshotWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.writeOnce(ctx)
		}
	}
}

func (w *SnapshotWriter) writeOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "janitor.snapshot")
	defer span.End()
	if err := w.snapshot(); err != nil {
		span.RecordError(err)
		w.logger.ErrorContext(ctx, "snapshot failed", slog.Any("err", err))
	}
}
