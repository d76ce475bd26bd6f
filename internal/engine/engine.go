package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/varsync/internal/store"
	"github.com/roach88/varsync/internal/variables"
)

// DefaultQuiescenceDelay is how long the scheduler waits for edits to
// settle before running a pass.
const DefaultQuiescenceDelay = 300 * time.Millisecond

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("engine stopped")

// Executor runs one pass. Implemented by *variables.Manager.
type Executor interface {
	// Admits reports whether n would be processed at all.
	Admits(n variables.Notification) bool
	Execute(ctx context.Context, n variables.Notification) ([]variables.Hint, error)
}

// Outcome describes one processed notification.
type Outcome struct {
	PassID string
	Seq    int64
	Status store.PassStatus
	// Mutations is the number of editor mutations the pass applied.
	Mutations int
	Hints     []variables.Hint
}

// Engine is the single-writer pass scheduler.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Process(): must not overlap Run or another Process on the same
//     document
type Engine struct {
	exec    Executor
	journal *store.Store
	clock   *Clock
	ids     IDGenerator
	delay   time.Duration
	logger  *slog.Logger
	slot    *pendingSlot
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithJournal records every pass in s. Without a journal nothing is
// persisted.
func WithJournal(s *store.Store) EngineOption {
	return func(e *Engine) {
		e.journal = s
	}
}

// WithQuiescenceDelay sets the debounce delay of Run.
//
// Default: 300ms (DefaultQuiescenceDelay)
func WithQuiescenceDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithIDGenerator sets the pass id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the logical clock, e.g. one from ResumeClock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine running passes through exec.
func New(exec Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		exec:  exec,
		clock: NewClock(),
		ids:   UUIDv7Generator{},
		delay: DefaultQuiescenceDelay,
		slot:  newPendingSlot(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Enqueue hands a notification to the Run loop.
// Thread-safe: may be called from any goroutine.
//
// A pending notification that has not started yet is discarded in favour
// of n; replaced reports whether that happened. Returns ErrStopped after
// Stop.
func (e *Engine) Enqueue(n variables.Notification) (replaced bool, err error) {
	replaced, ok := e.slot.Put(n)
	if !ok {
		return false, ErrStopped
	}
	if replaced {
		e.logger.Debug("pending notification replaced", "sequence", n.SequenceID)
	}
	return replaced, nil
}

// Run starts the single-writer scheduling loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: A failed pass is logged and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "quiescence_delay", e.delay)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.slot.Close()
			return ctx.Err()

		case <-e.slot.Wait():
			if e.slot.Closed() {
				e.logger.Info("engine stopping: stopped")
				return nil
			}
		}

		if err := e.settle(ctx); err != nil {
			if errors.Is(err, ErrStopped) {
				e.logger.Info("engine stopping: stopped")
				return nil
			}
			e.logger.Info("engine stopping: context cancelled")
			e.slot.Close()
			return err
		}

		n, ok := e.slot.Take()
		if !ok {
			continue
		}
		if _, err := e.Process(ctx, n); err != nil {
			e.logger.Error("pass failed",
				"error", err,
				"sequence", n.SequenceID,
			)
		}
	}
}

// settle waits until no notification has been put for the quiescence
// delay. A put during the wait restarts it.
func (e *Engine) settle(ctx context.Context) error {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.slot.Wait():
			if e.slot.Closed() {
				return ErrStopped
			}
			timer.Reset(e.delay)
		case <-timer.C:
			return nil
		}
	}
}

// Stop shuts the loop down. A pending notification is discarded; a pass
// already running finishes first.
func (e *Engine) Stop() {
	e.slot.Close()
}

// Process runs one pass for n immediately and journals it.
//
// The pass error, if any, is returned as is; a journal failure is joined
// to it.
func (e *Engine) Process(ctx context.Context, n variables.Notification) (Outcome, error) {
	out := Outcome{
		PassID: e.ids.Generate(),
		Seq:    e.clock.Next(),
		Hints:  []variables.Hint{},
	}
	if n.SequenceID == "" {
		n.SequenceID = out.PassID
	}
	log := e.logger.With("pass", out.PassID, "sequence", n.SequenceID, "seq", out.Seq)

	if !e.exec.Admits(n) {
		out.Status = store.PassSkipped
		log.Debug("pass skipped", "contexts", len(n.Contexts), "origins", len(n.Origins))
		return out, e.record(ctx, out, n.SequenceID, nil, nil)
	}

	var rec *recordingEditor
	if n.Editor != nil {
		rec = newRecordingEditor(n.Editor)
		n.Editor = rec
	}

	log.Debug("pass starting")
	hints, passErr := e.exec.Execute(ctx, n)
	if hints != nil {
		out.Hints = hints
	}

	var muts []store.Mutation
	if rec != nil {
		muts = rec.Mutations()
		if rec.fault != nil {
			log.Warn("mutation fingerprint failed", "error", rec.fault)
		}
	}
	out.Mutations = len(muts)

	if passErr != nil {
		out.Status = store.PassAborted
		log.Warn("pass aborted", "error", passErr, "mutations", out.Mutations)
	} else {
		out.Status = store.PassCompleted
		log.Info("pass completed", "mutations", out.Mutations)
	}

	if err := e.record(ctx, out, n.SequenceID, passErr, muts); err != nil {
		return out, errors.Join(passErr, err)
	}
	return out, passErr
}

func (e *Engine) record(ctx context.Context, out Outcome, sequenceID string, passErr error, muts []store.Mutation) error {
	if e.journal == nil {
		return nil
	}
	// journal even when the pass was cancelled
	ctx = context.WithoutCancel(ctx)

	p := store.Pass{
		ID:            out.PassID,
		SequenceID:    sequenceID,
		Seq:           out.Seq,
		Status:        out.Status,
		MutationCount: out.Mutations,
	}
	if passErr != nil {
		p.Error = passErr.Error()
	}
	if err := e.journal.WritePass(ctx, p); err != nil {
		return fmt.Errorf("journal pass: %w", err)
	}
	for _, m := range muts {
		m.PassID = out.PassID
		if err := e.journal.WriteMutation(ctx, m); err != nil {
			return fmt.Errorf("journal pass: %w", err)
		}
	}
	return nil
}
