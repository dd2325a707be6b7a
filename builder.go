package secs

import (
	"errors"
	"log/slog"
	"runtime"
)

// Builder assembles a Schedule one unit at a time.
//
//	frame, err := secs.NewSerial("frame").
//	    Add(acquire).
//	    Add(secs.NewParallel("encode").Add(shadows, opaque).MustBuild()).
//	    Add(present).
//	    Build()
type Builder struct {
	name    string
	mode    Mode
	units   []Runnable
	workers int
	log     *slog.Logger
}

// NewSerial starts a schedule whose children run in append order.
func NewSerial(name string) *Builder {
	return &Builder{name: name, mode: ModeSerial}
}

// NewParallel starts a schedule whose children run concurrently.
func NewParallel(name string) *Builder {
	return &Builder{name: name, mode: ModeParallel}
}

// Add appends units.
func (b *Builder) Add(units ...Runnable) *Builder {
	b.units = append(b.units, units...)
	return b
}

// Workers caps the number of goroutines used for concurrent dispatch.
// The default is runtime.GOMAXPROCS(0).
func (b *Builder) Workers(n int) *Builder {
	b.workers = n
	return b
}

// Logger sets the logger. The default is slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.log = l
	return b
}

// Build validates the units and returns the schedule.
//
// A unit that declares resource writes is rejected with a *BuildError wrapping
// ErrExclusiveResource: the shared world only offers read-or-write-through-lock
// access, never exclusive access to a resource for the length of a tick.
func (b *Builder) Build() (*Schedule, error) {
	workers := b.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}
	log := b.log
	if log == nil {
		log = slog.Default()
	}

	s := &Schedule{
		name:    b.name,
		mode:    b.mode,
		units:   make([]Runnable, 0, len(b.units)),
		workers: workers,
		log:     log,
	}

	for _, u := range b.units {
		if err := checkUnit(b.name, u); err != nil {
			return nil, err
		}
		s.units = append(s.units, u)
		s.access.Merge(u.Access())
	}

	if s.mode == ModeParallel {
		for i, a := range s.units {
			for _, c := range s.units[i+1:] {
				aa, ca := a.Access(), c.Access()
				if aa != nil && ca != nil && aa.Conflicts(ca) {
					log.Debug("secs: parallel siblings share written components",
						"schedule", s.name, "unit", a.Name(), "other", c.Name())
				}
			}
		}
	}
	return s, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Schedule {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// checkUnit rejects nil units and units declaring resource writes.
func checkUnit(schedule string, u Runnable) error {
	if u == nil {
		return &BuildError{Schedule: schedule, Unit: "<nil>", Err: errors.New("nil unit")}
	}
	if a := u.Access(); a != nil && len(a.ResWrites) > 0 {
		return &BuildError{Schedule: schedule, Unit: u.Name(), Type: a.ResWrites[0], Err: ErrExclusiveResource}
	}
	return nil
}
