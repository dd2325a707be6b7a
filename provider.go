package secs

import (
	"context"
	"fmt"
	"time"
)

// LoadFunc builds a value off the tick thread.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// LoadOptions configures a Loader.
type LoadOptions struct {
	// Timeout bounds the load. Zero means no timeout.
	Timeout time.Duration
}

// LoadOption is a functional option for Load.
type LoadOption func(*LoadOptions)

// WithLoadTimeout bounds how long the load may take.
func WithLoadTimeout(d time.Duration) LoadOption {
	return func(o *LoadOptions) {
		o.Timeout = d
	}
}

type loadResult[T any] struct {
	value T
	err   error
}

// Loader materializes a Lazy value asynchronously.
//
// The load runs in its own goroutine; a system polls it once per tick and
// returns early while it is still running, so the scheduler itself never
// blocks. A Loader is meant to be polled by a single system.
//
//	func (s *surfaceLoader) run(v *secs.View, _ *secs.CommandBuffer) error {
//	    cell := secs.MustGet[secs.Lazy[Surface]](v, s.window)
//	    if done, err := s.loader.Poll(cell); !done || err != nil {
//	        return nil
//	    }
//	    ...
//	}
type Loader[T any] struct {
	ch     chan loadResult[T]
	cancel context.CancelFunc
	done   bool
	err    error
}

// Load starts fn in a new goroutine.
func Load[T any](ctx context.Context, fn LoadFunc[T], opts ...LoadOption) *Loader[T] {
	o := LoadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	var cancel context.CancelFunc
	if o.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	l := &Loader[T]{ch: make(chan loadResult[T], 1), cancel: cancel}
	go func() {
		defer cancel()

		res := make(chan loadResult[T], 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					res <- loadResult[T]{err: fmt.Errorf("secs: load panicked: %v", r)}
				}
			}()
			v, err := fn(ctx)
			res <- loadResult[T]{value: v, err: err}
		}()

		select {
		case r := <-res:
			l.ch <- r
		case <-ctx.Done():
			l.ch <- loadResult[T]{err: fmt.Errorf("secs: load: %w", ctx.Err())}
		}
	}()
	return l
}

// Poll checks the load without blocking. When the load has finished it moves
// cell to Ready on success or Dropped on failure and returns true with the
// load's error. Subsequent calls report the same outcome and leave cell alone.
func (l *Loader[T]) Poll(cell *Lazy[T]) (bool, error) {
	if l.done {
		return true, l.err
	}
	select {
	case r := <-l.ch:
		l.done = true
		l.err = r.err
		if r.err != nil {
			cell.SetDropped()
		} else {
			cell.SetReady(r.value)
		}
		return true, r.err
	default:
		return false, nil
	}
}

// Done reports whether Poll has observed the end of the load.
func (l *Loader[T]) Done() bool {
	return l.done
}

// Cancel abandons the load. The next Poll that observes it drops the cell.
func (l *Loader[T]) Cancel() {
	l.cancel()
}
