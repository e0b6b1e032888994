package engine

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSettleRounds bounds Settle when the caller passes a non-positive
// round count.
const DefaultSettleRounds = 1000

// Engine is the single-writer task loop.
//
// CRITICAL: All tree mutations and rule evaluation happen in the goroutine
// that drains the queue (Run or RunPending). Timers and external callers
// only ever Enqueue.
//
// Thread-safety model:
//   - Enqueue(), AfterFunc(): safe from any goroutine
//   - Run(), RunPending(), Settle(): must be called from exactly one goroutine
type Engine struct {
	queue  *taskQueue
	time   TimeSource
	clock  *Clock
	logger *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithTimeSource sets the time source used for timers.
// Default: RealTime.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) {
		e.time = ts
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine. Options can be passed to configure the time
// source, the logical clock and the logger.
func New(opts ...Option) *Engine {
	e := &Engine{
		queue:  newTaskQueue(),
		time:   RealTime{},
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue submits a task for processing by the loop.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(t Task) bool {
	return e.queue.Enqueue(t)
}

// AfterFunc enqueues t once d has elapsed on the engine's time source.
// The task itself runs on the loop, never on the timer goroutine.
func (e *Engine) AfterFunc(d time.Duration, t Task) Timer {
	return e.time.AfterFunc(d, func() {
		if !e.queue.Enqueue(t) {
			e.logger.Debug("timer fired after engine stopped", "error", NewStoppedError(t.Name))
		}
	})
}

// Run starts the loop. Blocks until the context is cancelled or Stop() is
// called.
//
// ERROR HANDLING: a failing task is logged and processing continues. One
// broken rule must not abort the cascade for every other node.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		if t, ok := e.queue.TryDequeue(); ok {
			e.execute(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// RunPending drains the queue in the calling goroutine, including tasks
// enqueued by the tasks it runs. Returns the number of tasks executed.
func (e *Engine) RunPending(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		t, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		e.execute(ctx, t)
		n++
	}
	return n
}

// Settle runs the system to quiescence on a ManualTime source: it drains
// the queue, jumps to the next timer deadline, and repeats until neither
// tasks nor timers remain.
//
// Returns a NotSettled RuntimeError if maxRounds is exhausted first, which
// indicates a cascade that keeps rescheduling itself.
func (e *Engine) Settle(ctx context.Context, maxRounds int) error {
	mt, ok := e.time.(*ManualTime)
	if !ok {
		return ErrNotManualTime
	}
	if maxRounds <= 0 {
		maxRounds = DefaultSettleRounds
	}

	for round := 0; round < maxRounds; round++ {
		e.RunPending(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if !mt.AdvanceToNext() && e.queue.Len() == 0 {
			return nil
		}
	}
	return NewNotSettledError(maxRounds, mt.Pending(), e.queue.Len())
}

// Stop gracefully shuts down the engine.
// Closes the task queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Time returns the engine's time source.
func (e *Engine) Time() TimeSource {
	return e.time
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the current number of pending tasks.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) execute(ctx context.Context, t Task) {
	if t.Run == nil {
		e.logger.Error("task processing failed", "task", t.Name, "error", "nil task function")
		return
	}
	if err := t.Run(ctx); err != nil {
		logTaskError(e.logger, t, err)
	}
}

// logTaskError logs a task failure with full context.
func logTaskError(logger *slog.Logger, t Task, err error) {
	var re *RuntimeError
	if asRuntimeError(err, &re) {
		logger.Error("task processing failed",
			"task", t.Name,
			"code", re.Code,
			"error", err,
		)
		return
	}
	logger.Error("task processing failed",
		"task", t.Name,
		"error", err,
	)
}
