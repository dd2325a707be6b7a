package secs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Mode selects how a schedule dispatches its direct children.
type Mode uint8

const (
	// ModeSerial runs children one at a time in the order they were added.
	ModeSerial Mode = iota
	// ModeParallel runs children concurrently with no ordering between them.
	ModeParallel
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSerial:
		return "Serial"
	case ModeParallel:
		return "Parallel"
	default:
		return "Unknown"
	}
}

// Schedule is an ordered group of runnable units executed either serially or in
// parallel. A Schedule is itself a Runnable, so serial and parallel groups nest
// freely; the mode of a node only governs its direct children.
//
// Each execution runs in phases:
//
//  1. Prepare: every child refreshes its query caches, concurrently.
//  2. Run: children execute serially or in parallel.
//  3. Flush (top level only): the command buffers of direct children are applied
//     under a fresh write lock each. Buffers of grandchildren are never flushed.
//
// Execution is fail-fast: the first error or panic aborts the node. A serial
// node skips the units after the failing one; a parallel node starts no new
// units, waits for the ones already running and returns the first error.
type Schedule struct {
	name    string
	mode    Mode
	units   []Runnable
	access  AccessMeta
	workers int
	log     *slog.Logger
}

// Name implements Runnable.
func (s *Schedule) Name() string {
	return s.name
}

// Mode returns the dispatch mode.
func (s *Schedule) Mode() Mode {
	return s.mode
}

// Access implements Runnable. It is the union of the children's access.
func (s *Schedule) Access() *AccessMeta {
	return &s.access
}

// Units returns the direct children in the order they were added.
func (s *Schedule) Units() []Runnable {
	out := make([]Runnable, len(s.units))
	copy(out, s.units)
	return out
}

// Len returns the number of direct children.
func (s *Schedule) Len() int {
	return len(s.units)
}

// Prepare implements Runnable. Children are prepared concurrently regardless of mode.
// A child that declared resource writes after Build fails with ErrExclusiveResource.
func (s *Schedule) Prepare(v *View) error {
	return s.fanOut(func(u Runnable) error {
		if err := checkUnit(s.name, u); err != nil {
			return err
		}
		return u.Prepare(v)
	})
}

// Run implements Runnable.
func (s *Schedule) Run(v *View) error {
	if s.mode == ModeParallel {
		return s.fanOut(func(u Runnable) error {
			return u.Run(v)
		})
	}
	for _, u := range s.units {
		if err := guard(u.Name(), func() error { return u.Run(v) }); err != nil {
			s.log.Debug("secs: serial unit failed", "schedule", s.name, "unit", u.Name(), "error", err)
			return err
		}
	}
	return nil
}

// fanOut runs fn for every child across at most s.workers goroutines.
// Children not yet started when one fails are skipped.
func (s *Schedule) fanOut(fn func(u Runnable) error) error {
	switch len(s.units) {
	case 0:
		return nil
	case 1:
		u := s.units[0]
		return guard(u.Name(), func() error { return fn(u) })
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.workers)
	for _, u := range s.units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return guard(u.Name(), func() error { return fn(u) })
		})
	}
	return g.Wait()
}

// Execute prepares and runs the schedule under a read guard from l.
// Structural edits stay in the command buffers until Flush.
func (s *Schedule) Execute(l Lockable[World]) error {
	g := l.RLock()
	defer g.Release()

	v := g.Get().View()
	if err := s.Prepare(v); err != nil {
		return fmt.Errorf("secs: prepare %s: %w", s.name, err)
	}
	if err := s.Run(v); err != nil {
		return fmt.Errorf("secs: run %s: %w", s.name, err)
	}
	return nil
}

// Flush applies the pending edits of every direct child that owns a command
// buffer. Each non-empty buffer is flushed under its own write guard.
// Flushing when nothing is pending is a no-op. A panic raised by a component
// hook is returned as a *PanicError and the write guard is released.
func (s *Schedule) Flush(l Lockable[World]) error {
	var errs []error
	for _, u := range s.units {
		d, ok := u.(Deferred)
		if !ok {
			continue
		}
		cb := d.Commands()
		if cb.Empty() {
			continue
		}
		n := cb.Len()
		if err := flushCommands(l, u.Name(), cb); err != nil {
			errs = append(errs, fmt.Errorf("secs: flush %s: %w", u.Name(), err))
		}
		s.log.Debug("secs: flushed commands", "schedule", s.name, "unit", u.Name(), "commands", n)
	}
	return errors.Join(errs...)
}

// flushCommands applies cb under a write guard from l.
func flushCommands(l Lockable[World], name string, cb *CommandBuffer) error {
	g := l.Lock()
	defer g.Release()
	return guard(name, func() error {
		return cb.Flush(g.Get())
	})
}

// ExecuteAndFlush runs the schedule and then flushes its direct children.
// Nothing is flushed when execution fails; pending edits are kept for the next
// successful flush.
func (s *Schedule) ExecuteAndFlush(l Lockable[World]) error {
	if err := s.Execute(l); err != nil {
		return err
	}
	return s.Flush(l)
}
