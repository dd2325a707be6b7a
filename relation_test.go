package secs_test

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/secs"
)

type camera struct {
	View mgl32.Mat4
}

type renderer struct {
	Camera secs.Ref[camera]
}

func TestRefLocalResolvesAgainstSelf(t *testing.T) {
	w := secs.NewWorld()
	a, err := w.Spawn(&camera{View: mgl32.Translate3D(1, 0, 0)})
	require.NoError(t, err)
	b, err := w.Spawn(&camera{View: mgl32.Translate3D(2, 0, 0)})
	require.NoError(t, err)

	ref := secs.Local[camera]()
	assert.True(t, ref.IsLocal())

	ca, err := ref.Resolve(w.View(), a)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Translate3D(1, 0, 0), ca.View)

	cb, err := ref.Resolve(w.View(), b)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Translate3D(2, 0, 0), cb.View)
}

func TestRefForeignIgnoresSelf(t *testing.T) {
	w := secs.NewWorld()
	cam, err := w.Spawn(&camera{View: mgl32.Ident4()})
	require.NoError(t, err)
	other, err := w.Spawn(&camera{View: mgl32.Scale3D(3, 3, 3)})
	require.NoError(t, err)

	r := renderer{Camera: secs.Foreign[camera](cam)}
	assert.False(t, r.Camera.IsLocal())
	assert.Equal(t, cam, r.Camera.Target(other))

	c, err := secs.Resolve(w.View(), r.Camera, other)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Ident4(), c.View)
}

func TestRefSeesInPlaceUpdates(t *testing.T) {
	w := secs.NewWorld()
	cam := &camera{View: mgl32.Ident4()}
	e, err := w.Spawn(cam)
	require.NoError(t, err)

	ref := secs.Foreign[camera](e)
	cam.View = mgl32.Translate3D(0, 5, 0)

	c, err := ref.Resolve(w, e)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Translate3D(0, 5, 0), c.View)
}

func TestRefResolveErrors(t *testing.T) {
	w := secs.NewWorld()
	bare, err := w.Spawn(&counter{})
	require.NoError(t, err)
	gone, err := w.Spawn(&camera{})
	require.NoError(t, err)
	require.NoError(t, w.Despawn(gone))

	t.Run("missing component", func(t *testing.T) {
		_, err := secs.Local[camera]().Resolve(w, bare)
		var re *secs.ResolveError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, bare, re.Entity)
		assert.Equal(t, secs.TypeOf[camera](), re.Type)
		assert.ErrorIs(t, err, secs.ErrNoSuchComponent)
	})

	t.Run("dead entity", func(t *testing.T) {
		ref := secs.Foreign[camera](gone)
		_, err := ref.Resolve(w, bare)
		assert.ErrorIs(t, err, secs.ErrNoSuchEntity)
		assert.False(t, ref.Valid(w, bare))
	})

	t.Run("undeclared access", func(t *testing.T) {
		v := w.View().Restrict(&secs.AccessMeta{Reads: []reflect.Type{secs.TypeOf[counter]()}})
		_, err := secs.Local[counter]().Resolve(v, bare)
		require.NoError(t, err)

		_, err = secs.Foreign[camera](bare).Resolve(v, bare)
		assert.ErrorIs(t, err, secs.ErrAccessDenied)
	})
}

func TestRefTargetType(t *testing.T) {
	assert.Equal(t, secs.TypeOf[camera](), secs.Local[camera]().TargetType())
}
