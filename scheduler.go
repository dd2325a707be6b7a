package secs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner drives top-level schedules against a world, one tick at a time.
//
// Ticks never overlap: every schedule of tick N, flushes included, completes
// before anything of tick N+1 starts. Within a tick, stages run in order and the
// schedules of a stage run in registration order. One-shot units registered with
// After run at the end of the tick in which they become due.
//
// A tick that fails stops the runner; the error is returned by Wait.
type Runner struct {
	handle Lockable[World]
	log    *slog.Logger

	loops   [stageCount][]*loopState
	loopsMu sync.RWMutex

	tasks *taskQueue

	tickRate   time.Duration
	tickMu     sync.Mutex
	tickNumber atomic.Uint64

	running atomic.Bool
	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stop    sync.Once

	errMu sync.Mutex
	err   error
}

// loopState tracks one registered schedule.
type loopState struct {
	schedule *Schedule
	interval time.Duration
	lastRun  time.Time
	nextRun  time.Time
}

// ShouldRun reports whether the schedule is due at now.
func (l *loopState) ShouldRun(now time.Time) bool {
	if l.interval == 0 {
		return true
	}
	return !now.Before(l.nextRun)
}

// MarkRun records a run at now and schedules the next one without drift.
func (l *loopState) MarkRun(now time.Time) {
	l.lastRun = now
	if l.interval > 0 {
		l.nextRun = l.nextRun.Add(l.interval)
		if l.nextRun.Before(now) {
			l.nextRun = now.Add(l.interval)
		}
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickRate sets the period of the tick loop started by Start.
func WithTickRate(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.tickRate = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner returns a runner executing against l.
func NewRunner(l Lockable[World], opts ...RunnerOption) *Runner {
	r := &Runner{
		handle:   l,
		log:      slog.Default(),
		tasks:    newTaskQueue(),
		tickRate: 50 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Loop registers s to run every interval within stage. An interval of 0 runs
// it every tick.
func (r *Runner) Loop(s *Schedule, interval time.Duration, stage Stage) *Runner {
	if stage < Before || stage >= stageCount {
		stage = Default
	}
	r.loopsMu.Lock()
	r.loops[stage] = append(r.loops[stage], &loopState{schedule: s, interval: interval})
	r.loopsMu.Unlock()
	return r
}

// After schedules unit to run once, at the first tick at least delay from now.
// Its command buffer, if any, is flushed right after it runs. A Schedule has the
// buffers of its direct children flushed.
func (r *Runner) After(unit Runnable, delay time.Duration) *TaskHandle {
	task := &scheduledTask{executeAt: time.Now().Add(delay), unit: unit}
	r.tasks.Push(task)
	return &TaskHandle{task: task}
}

// TickNumber returns the number of ticks started so far.
func (r *Runner) TickNumber() uint64 {
	return r.tickNumber.Load()
}

// Tick runs one tick at now: due schedules by stage, then due one-shot units.
func (r *Runner) Tick(now time.Time) error {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	n := r.tickNumber.Add(1)
	for stage := Before; stage < stageCount; stage++ {
		r.loopsMu.RLock()
		loops := r.loops[stage]
		r.loopsMu.RUnlock()

		for _, loop := range loops {
			if !loop.ShouldRun(now) {
				continue
			}
			if err := loop.schedule.ExecuteAndFlush(r.handle); err != nil {
				return fmt.Errorf("secs: tick %d stage %s: %w", n, stage, err)
			}
			loop.MarkRun(now)
		}
	}
	if err := r.processTasks(now); err != nil {
		return fmt.Errorf("secs: tick %d: %w", n, err)
	}
	return nil
}

// processTasks runs the one-shot units due at now. Caller must hold tickMu.
func (r *Runner) processTasks(now time.Time) error {
	for _, task := range r.tasks.PopDue(now) {
		if err := r.runOnce(task.unit); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runOnce(u Runnable) error {
	g := r.handle.RLock()
	v := g.Get().View()
	err := guard(u.Name(), func() error {
		if err := u.Prepare(v); err != nil {
			return err
		}
		return u.Run(v)
	})
	g.Release()
	if err != nil {
		return fmt.Errorf("secs: task %s: %w", u.Name(), err)
	}

	switch d := u.(type) {
	case *Schedule:
		err = d.Flush(r.handle)
	case Deferred:
		if !d.Commands().Empty() {
			err = flushCommands(r.handle, u.Name(), d.Commands())
		}
	}
	if err != nil {
		return fmt.Errorf("secs: task %s: %w", u.Name(), err)
	}
	return nil
}

// Start begins ticking on a new goroutine until Stop is called, ctx is done or
// a tick fails. A runner can only be started once.
func (r *Runner) Start(ctx context.Context) {
	if r.started.Swap(true) {
		return
	}
	r.running.Store(true)
	go r.tickLoop(ctx)
}

// Running reports whether the tick loop is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Stop ends the tick loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	r.stop.Do(func() {
		close(r.stopCh)
	})
	if r.started.Load() {
		<-r.doneCh
	}
}

// Wait blocks until the tick loop exits and returns the error that ended it.
// It returns immediately if the loop was never started.
func (r *Runner) Wait() error {
	if r.started.Load() {
		<-r.doneCh
	}
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *Runner) tickLoop(ctx context.Context) {
	defer close(r.doneCh)
	defer r.running.Store(false)

	ticker := time.NewTicker(r.tickRate)
	defer ticker.Stop()

	r.log.Info("secs: runner started", "tick_rate", r.tickRate)
	for {
		var err error
		select {
		case <-r.stopCh:
			r.log.Info("secs: runner stopped", "ticks", r.TickNumber())
			return
		case <-ctx.Done():
			r.log.Info("secs: runner context done", "ticks", r.TickNumber(), "cause", ctx.Err())
			return
		case now := <-ticker.C:
			err = r.Tick(now)
		case <-r.tasks.Notify():
			r.tickMu.Lock()
			err = r.processTasks(time.Now())
			r.tickMu.Unlock()
		}
		if err != nil {
			r.log.Error("secs: tick failed", "tick", r.TickNumber(), "error", err)
			r.errMu.Lock()
			r.err = err
			r.errMu.Unlock()
			return
		}
	}
}
