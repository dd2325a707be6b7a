package secs_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/secs"
)

type health struct {
	hp int
}

type hooked struct {
	attached []secs.Entity
	detached []secs.Entity
}

func (h *hooked) Attach(_ *secs.World, e secs.Entity) { h.attached = append(h.attached, e) }
func (h *hooked) Detach(_ *secs.World, e secs.Entity) { h.detached = append(h.detached, e) }

type settings struct {
	gravity float32
}

func TestWorldSpawnAndGet(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn(&health{hp: 10}, &counter{n: 2})
	require.NoError(t, err)

	assert.True(t, w.Alive(e))
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, 10, secs.MustGet[health](w, e).hp)
	assert.True(t, secs.Has[counter](w, e))
	assert.Equal(t, 2, w.ComponentCount())
	assert.Equal(t, "secs_test.health", w.ComponentName(secs.ComponentIDOf[health](w)))
}

func TestWorldSpawnRejectsNonPointers(t *testing.T) {
	w := secs.NewWorld()

	_, err := w.Spawn(health{hp: 1})
	require.Error(t, err)
	_, err = w.Spawn((*health)(nil))
	require.Error(t, err)

	assert.Equal(t, 0, w.Len())
	// The reserved ID went back to the allocator.
	e, err := w.Spawn(&health{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), e.ID)
}

func TestWorldDespawnRecyclesWithNewGeneration(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn(&health{hp: 1})
	require.NoError(t, err)
	require.NoError(t, w.Despawn(e))

	assert.False(t, w.Alive(e))
	assert.ErrorIs(t, w.Despawn(e), secs.ErrNoSuchEntity)

	next, err := w.Spawn(&health{hp: 2})
	require.NoError(t, err)
	assert.Equal(t, e.ID, next.ID)
	assert.NotEqual(t, e.Gen, next.Gen)

	_, err = secs.Get[health](w, e)
	assert.ErrorIs(t, err, secs.ErrNoSuchEntity)
	assert.Equal(t, 2, secs.MustGet[health](w, next).hp)
}

func TestWorldInsertRemove(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn()
	require.NoError(t, err)

	v0 := w.Version()
	require.NoError(t, secs.Insert(w, e, &health{hp: 3}))
	assert.Greater(t, w.Version(), v0)

	require.NoError(t, secs.Insert(w, e, &health{hp: 4}))
	assert.Equal(t, 4, secs.MustGet[health](w, e).hp)

	require.NoError(t, secs.Remove[health](w, e))
	assert.False(t, secs.Has[health](w, e))
	assert.ErrorIs(t, secs.Remove[health](w, e), secs.ErrNoSuchComponent)
	assert.Error(t, secs.Insert[health](w, e, nil))
}

func TestWorldHooks(t *testing.T) {
	w := secs.NewWorld()
	h := &hooked{}
	e, err := w.Spawn(h)
	require.NoError(t, err)
	assert.Equal(t, []secs.Entity{e}, h.attached)

	replacement := &hooked{}
	require.NoError(t, secs.Insert(w, e, replacement))
	assert.Equal(t, []secs.Entity{e}, h.detached, "replaced component is detached")
	assert.Equal(t, []secs.Entity{e}, replacement.attached)

	require.NoError(t, w.Despawn(e))
	assert.Equal(t, []secs.Entity{e}, replacement.detached)
}

func TestWorldResources(t *testing.T) {
	w := secs.NewWorld()

	_, err := secs.Resource[settings](w)
	assert.ErrorIs(t, err, secs.ErrNoSuchResource)

	secs.SetResource(w, &settings{gravity: 9.8})
	s, err := secs.Resource[settings](w)
	require.NoError(t, err)
	assert.InDelta(t, 9.8, s.gravity, 1e-6)

	secs.RemoveResource[settings](w)
	_, err = secs.Resource[settings](w)
	assert.ErrorIs(t, err, secs.ErrNoSuchResource)
}

func TestViewRestriction(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn(&health{hp: 5}, &counter{n: 1})
	require.NoError(t, err)
	secs.SetResource(w, &settings{})

	full := w.View()
	assert.False(t, full.Restricted())
	assert.Same(t, full, full.Restrict(&secs.AccessMeta{}))

	v := full.Restrict(&secs.AccessMeta{
		Reads:    []reflect.Type{secs.TypeOf[health]()},
		ResReads: []reflect.Type{secs.TypeOf[settings]()},
	})
	assert.True(t, v.Restricted())
	assert.Equal(t, v.World(), w)

	_, err = secs.Get[health](v, e)
	require.NoError(t, err)
	_, err = secs.Get[counter](v, e)
	assert.ErrorIs(t, err, secs.ErrAccessDenied)
	_, err = secs.Resource[settings](v)
	require.NoError(t, err)

	// A nested restriction cannot widen its parent.
	sub := v.Restrict(&secs.AccessMeta{Reads: []reflect.Type{secs.TypeOf[health](), secs.TypeOf[counter]()}})
	_, err = secs.Get[health](sub, e)
	require.NoError(t, err)
	_, err = secs.Get[counter](sub, e)
	assert.ErrorIs(t, err, secs.ErrAccessDenied)
	_, err = secs.Resource[settings](sub)
	assert.ErrorIs(t, err, secs.ErrAccessDenied)
}

func TestViewEntities(t *testing.T) {
	w := secs.NewWorld()
	a, _ := w.Spawn(&health{})
	b, _ := w.Spawn(&health{})
	c, _ := w.Spawn(&health{})
	require.NoError(t, w.Despawn(b))

	assert.Equal(t, []secs.Entity{a, c}, secs.Entities(w))
	assert.Equal(t, 2, w.View().Len())
}

func TestIDAllocator(t *testing.T) {
	a := secs.NewIDAllocator()
	e0 := a.Alloc()
	e1 := a.Alloc()
	assert.Equal(t, secs.Entity{ID: 0, Gen: 1}, e0)
	assert.Equal(t, secs.Entity{ID: 1, Gen: 1}, e1)
	assert.Equal(t, "1:1", e1.String())

	assert.True(t, a.Free(e0))
	assert.False(t, a.Free(e0), "double free is ignored")
	assert.False(t, a.Current(e0))

	r := a.Alloc()
	assert.Equal(t, secs.Entity{ID: 0, Gen: 2}, r)
	assert.True(t, a.Current(r))
	assert.Equal(t, 2, a.Len())

	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, secs.Entity{ID: 0, Gen: 1}, a.Alloc())
}

func TestWorldsAreIndependent(t *testing.T) {
	shared := secs.NewIDAllocator()
	w1 := secs.NewWorld(secs.WithAllocator(shared))
	w2 := secs.NewWorld(secs.WithAllocator(shared))
	assert.NotEqual(t, w1.ID(), w2.ID())

	e1, err := w1.Spawn(&health{})
	require.NoError(t, err)
	e2, err := w2.Spawn(&counter{})
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Same(t, shared, w1.Allocator())

	// Component IDs are assigned per world.
	assert.Equal(t, secs.ComponentID(0), secs.ComponentIDOf[health](w1))
	assert.Equal(t, secs.ComponentID(0), secs.ComponentIDOf[counter](w2))
}
