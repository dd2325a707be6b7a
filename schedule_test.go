package secs_test

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/secs"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) mark(s string) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.got
	r.got = nil
	return out
}

func (r *recorder) system(name string) *secs.System {
	return secs.NewSystem(name, func(*secs.View, *secs.CommandBuffer) error {
		r.mark(name)
		return nil
	})
}

func failing(name string, err error) *secs.System {
	return secs.NewSystem(name, func(*secs.View, *secs.CommandBuffer) error {
		return err
	})
}

func TestSerialOrderIsDeterministic(t *testing.T) {
	h := secs.NewHandle(nil)
	rec := &recorder{}
	s := secs.NewSerial("frame").
		Add(rec.system("a"), rec.system("b"), rec.system("c")).
		Add(rec.system("d")).
		MustBuild()

	assert.Equal(t, secs.ModeSerial, s.Mode())
	assert.Equal(t, 4, s.Len())
	for range 10 {
		require.NoError(t, s.ExecuteAndFlush(h))
		assert.Equal(t, []string{"a", "b", "c", "d"}, rec.take())
	}
}

func TestParallelRunsEveryUnitOnce(t *testing.T) {
	h := secs.NewHandle(nil)
	rec := &recorder{}
	names := []string{"a", "b", "c", "d", "e", "f"}

	b := secs.NewParallel("encode").Workers(3)
	for _, n := range names {
		b.Add(rec.system(n))
	}
	s := b.MustBuild()

	for range 10 {
		require.NoError(t, s.Execute(h))
		assert.ElementsMatch(t, names, rec.take())
	}
}

func TestNestedSchedules(t *testing.T) {
	h := secs.NewHandle(nil)
	rec := &recorder{}

	inner := secs.NewParallel("inner").Add(rec.system("b"), rec.system("c")).MustBuild()
	outer := secs.NewSerial("outer").Add(rec.system("a"), inner, rec.system("d")).MustBuild()

	for range 5 {
		require.NoError(t, outer.ExecuteAndFlush(h))
		got := rec.take()
		require.Len(t, got, 4)
		assert.Equal(t, "a", got[0])
		assert.ElementsMatch(t, []string{"b", "c"}, got[1:3])
		assert.Equal(t, "d", got[3])
	}
}

func TestSerialInsideParallel(t *testing.T) {
	h := secs.NewHandle(nil)
	rec := &recorder{}

	left := secs.NewSerial("left").Add(rec.system("l1"), rec.system("l2")).MustBuild()
	right := secs.NewSerial("right").Add(rec.system("r1"), rec.system("r2")).MustBuild()
	s := secs.NewParallel("both").Add(left, right).MustBuild()

	require.NoError(t, s.Execute(h))
	got := rec.take()
	require.Len(t, got, 4)
	assert.Less(t, slices.Index(got, "l1"), slices.Index(got, "l2"))
	assert.Less(t, slices.Index(got, "r1"), slices.Index(got, "r2"))
}

func TestBuildRejectsResourceWrites(t *testing.T) {
	sys := secs.NewSystem("clock", func(*secs.View, *secs.CommandBuffer) error { return nil }).
		WritesResource(secs.TypeOf[settings]())

	for _, b := range []*secs.Builder{secs.NewSerial("s"), secs.NewParallel("p")} {
		_, err := b.Add(sys).Build()
		var be *secs.BuildError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "clock", be.Unit)
		assert.Equal(t, secs.TypeOf[settings](), be.Type)
		assert.ErrorIs(t, err, secs.ErrExclusiveResource)
	}

	assert.Panics(t, func() { secs.NewSerial("s").Add(sys).MustBuild() })
}

func TestResourceWritesDeclaredAfterBuildFailExecution(t *testing.T) {
	h := secs.NewHandle(nil)
	for _, b := range []*secs.Builder{secs.NewSerial("s"), secs.NewParallel("p")} {
		sys := secs.NewSystem("clock", func(*secs.View, *secs.CommandBuffer) error { return nil })
		s := b.Add(sys).MustBuild()
		require.NoError(t, s.ExecuteAndFlush(h))

		sys.WritesResource(secs.TypeOf[settings]())
		assert.ErrorIs(t, s.ExecuteAndFlush(h), secs.ErrExclusiveResource)
	}
}

func TestBuildRejectsNilUnit(t *testing.T) {
	_, err := secs.NewSerial("s").Add(nil).Build()
	var be *secs.BuildError
	assert.ErrorAs(t, err, &be)
}

func TestScheduleAccessIsUnion(t *testing.T) {
	a := secs.NewSystem("a", nil).Reads(secs.TypeOf[health]())
	b := secs.NewSystem("b", nil).Writes(secs.TypeOf[counter]()).ReadsResource(secs.TypeOf[settings]())
	s := secs.NewParallel("p").Add(a, b).MustBuild()

	acc := s.Access()
	assert.Contains(t, toAny(acc.Reads), secs.TypeOf[health]())
	assert.Contains(t, toAny(acc.Writes), secs.TypeOf[counter]())
	assert.Contains(t, toAny(acc.ResReads), secs.TypeOf[settings]())
	assert.True(t, a.Access().Conflicts(secs.NewSystem("c", nil).Writes(secs.TypeOf[health]()).Access()))
	assert.False(t, a.Access().Conflicts(b.Access()))
}

func TestSerialFailFast(t *testing.T) {
	h := secs.NewHandle(nil)
	rec := &recorder{}
	boom := errors.New("boom")

	s := secs.NewSerial("frame").
		Add(rec.system("a"), failing("b", boom), rec.system("c")).
		MustBuild()

	err := s.Execute(h)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, rec.take())
}

func TestParallelReturnsFirstError(t *testing.T) {
	h := secs.NewHandle(nil)
	boom := errors.New("boom")

	s := secs.NewParallel("p").
		Add(failing("a", boom), failing("b", boom), failing("c", nil)).
		MustBuild()

	assert.ErrorIs(t, s.Execute(h), boom)
}

func TestParallelSkipsSiblingsAfterFailure(t *testing.T) {
	h := secs.NewHandle(nil)
	boom := errors.New("boom")

	var ran atomic.Int32
	b := secs.NewParallel("p").Workers(1).Add(failing("first", boom))
	for range 5 {
		b.Add(secs.NewSystem("count", func(*secs.View, *secs.CommandBuffer) error {
			ran.Add(1)
			return nil
		}))
	}

	assert.ErrorIs(t, b.MustBuild().Execute(h), boom)
	assert.Zero(t, ran.Load())
}

type exploding struct{}

func (*exploding) Attach(*secs.World, secs.Entity) { panic("attach failed") }

func TestFlushPanicReleasesWriteLock(t *testing.T) {
	h := secs.NewHandle(nil)
	var e secs.Entity
	require.NoError(t, h.Update(func(w *secs.World) error {
		var err error
		e, err = w.Spawn()
		return err
	}))

	s := secs.NewSerial("s").Add(secs.NewSystem("attach", func(_ *secs.View, cmd *secs.CommandBuffer) error {
		secs.InsertLater(cmd, e, &exploding{})
		return nil
	})).MustBuild()

	var pe *secs.PanicError
	require.ErrorAs(t, s.ExecuteAndFlush(h), &pe)
	assert.Equal(t, "attach", pe.Unit)

	done := make(chan struct{})
	go func() {
		h.View(func(*secs.View) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("world still locked")
	}
}

func TestPanicBecomesError(t *testing.T) {
	h := secs.NewHandle(nil)
	panicky := secs.NewSystem("panicky", func(*secs.View, *secs.CommandBuffer) error {
		panic("kaboom")
	})

	for _, b := range []*secs.Builder{secs.NewSerial("s"), secs.NewParallel("p")} {
		s := b.Add(panicky, failing("ok", nil)).MustBuild()
		err := s.ExecuteAndFlush(h)

		var pe *secs.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "panicky", pe.Unit)
		assert.Equal(t, "kaboom", pe.Value)
		assert.NotEmpty(t, pe.Stack)
	}
}

func TestPanicWithErrorUnwraps(t *testing.T) {
	h := secs.NewHandle(nil)
	boom := errors.New("boom")
	s := secs.NewSerial("s").Add(secs.NewSystem("p", func(*secs.View, *secs.CommandBuffer) error {
		panic(boom)
	})).MustBuild()

	assert.ErrorIs(t, s.Execute(h), boom)
}

func TestFlushOnlyDirectChildren(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn()
	require.NoError(t, err)
	h := secs.NewHandle(w)

	outerSys := secs.NewSystem("outer", func(_ *secs.View, cmd *secs.CommandBuffer) error {
		secs.InsertLater(cmd, e, &health{hp: 1})
		return nil
	})
	innerSys := secs.NewSystem("inner", func(_ *secs.View, cmd *secs.CommandBuffer) error {
		secs.InsertLater(cmd, e, &counter{n: 1})
		return nil
	})
	s := secs.NewSerial("top").
		Add(outerSys, secs.NewParallel("nested").Add(innerSys).MustBuild()).
		MustBuild()

	require.NoError(t, s.ExecuteAndFlush(h))

	h.View(func(v *secs.View) {
		assert.True(t, secs.Has[health](v, e))
		assert.False(t, secs.Has[counter](v, e))
	})
	assert.True(t, outerSys.Commands().Empty())
	assert.Equal(t, 1, innerSys.Commands().Len())
}

func TestNoFlushOnFailedExecute(t *testing.T) {
	h := secs.NewHandle(nil)
	boom := errors.New("boom")

	var spawned secs.Entity
	spawner := secs.NewSystem("spawner", func(_ *secs.View, cmd *secs.CommandBuffer) error {
		spawned = cmd.Spawn(&health{})
		return nil
	})
	s := secs.NewSerial("s").Add(spawner, failing("fail", boom)).MustBuild()

	require.ErrorIs(t, s.ExecuteAndFlush(h), boom)
	h.View(func(v *secs.View) {
		assert.Equal(t, 0, v.Len())
	})
	assert.Equal(t, 1, spawner.Commands().Len(), "edits stay queued")

	require.NoError(t, s.Flush(h))
	h.View(func(v *secs.View) {
		assert.True(t, v.Alive(spawned))
	})

	// Flushing with nothing pending leaves the world untouched.
	var before uint64
	h.View(func(v *secs.View) { before = v.Version() })
	require.NoError(t, s.Flush(h))
	h.View(func(v *secs.View) { assert.Equal(t, before, v.Version()) })
}

func TestSystemViewIsRestricted(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn(&health{hp: 1}, &counter{n: 1})
	require.NoError(t, err)
	h := secs.NewHandle(w)

	var hpErr, countErr error
	sys := secs.NewSystem("reader", func(v *secs.View, _ *secs.CommandBuffer) error {
		_, hpErr = secs.Get[health](v, e)
		_, countErr = secs.Get[counter](v, e)
		return nil
	}).Reads(secs.TypeOf[health]())

	require.NoError(t, secs.NewSerial("s").Add(sys).MustBuild().Execute(h))
	assert.NoError(t, hpErr)
	assert.ErrorIs(t, countErr, secs.ErrAccessDenied)
}

func TestParallelWritesThroughSharedComponents(t *testing.T) {
	w := secs.NewWorld()
	const n = 16
	for range n {
		_, err := w.Spawn(secs.NewShared(counter{}))
		require.NoError(t, err)
	}
	h := secs.NewHandle(w)

	counters := secs.NewQuery(secs.With[secs.Shared[counter]]{})
	bump := func(name string) *secs.System {
		return secs.NewSystem(name, func(v *secs.View, _ *secs.CommandBuffer) error {
			return counters.Each(v, func(e secs.Entity) error {
				c, err := secs.Get[secs.Shared[counter]](v, e)
				if err != nil {
					return err
				}
				c.Write(func(c *counter) { c.n++ })
				return nil
			})
		}).Writes(secs.TypeOf[secs.Shared[counter]]()).Query(counters)
	}

	s := secs.NewParallel("bump").Add(bump("a"), bump("b"), bump("c"), bump("d")).MustBuild()
	require.NoError(t, s.ExecuteAndFlush(h))

	h.View(func(v *secs.View) {
		for _, e := range counters.Entities(v) {
			secs.MustGet[secs.Shared[counter]](v, e).Read(func(c *counter) {
				assert.Equal(t, 4, c.n)
			})
		}
	})
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "Serial", secs.ModeSerial.String())
	assert.Equal(t, "Parallel", secs.ModeParallel.String())
}
