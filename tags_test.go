package secs_test

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/secs"
)

type (
	uniforms struct{}
	vertices struct{}
	position struct{}
	velocity struct{}
)

type buffer struct {
	handle uint32
}

func TestTaggedDistinctComponents(t *testing.T) {
	w := secs.NewWorld()
	e, err := w.Spawn(
		&secs.Tagged[uniforms, buffer]{Value: buffer{handle: 1}},
		&secs.Tagged[vertices, buffer]{Value: buffer{handle: 2}},
	)
	require.NoError(t, err)

	ubo, err := secs.Get[secs.Tagged[uniforms, buffer]](w, e)
	require.NoError(t, err)
	vbo, err := secs.Get[secs.Tagged[vertices, buffer]](w, e)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), ubo.Get().handle)
	assert.Equal(t, uint32(2), vbo.Get().handle)
	assert.False(t, secs.Has[buffer](w, e))
	assert.NotEqual(t, secs.ComponentIDOf[secs.Tagged[uniforms, buffer]](w), secs.ComponentIDOf[secs.Tagged[vertices, buffer]](w))
}

func TestTaggedVectors(t *testing.T) {
	pos := secs.NewTagged[position](mgl32.Vec3{1, 2, 3})
	vel := secs.NewTagged[velocity](mgl32.Vec3{0, 1, 0})

	pos.Ptr()[1] += vel.Get()[1]
	assert.Equal(t, mgl32.Vec3{1, 3, 3}, pos.Get())
}

func TestTaggedEqualityAndHashing(t *testing.T) {
	a := secs.NewTagged[uniforms](7)
	b := secs.NewTagged[uniforms](7)
	c := secs.NewTagged[uniforms](8)

	assert.True(t, a == b)
	assert.False(t, a == c)

	seen := map[secs.Tagged[uniforms, int]]string{a: "a"}
	assert.Equal(t, "a", seen[b])
	_, ok := seen[c]
	assert.False(t, ok)
}

func TestCompareTagged(t *testing.T) {
	vals := []secs.Tagged[vertices, int]{
		secs.NewTagged[vertices](3),
		secs.NewTagged[vertices](1),
		secs.NewTagged[vertices](2),
	}
	slices.SortFunc(vals, secs.CompareTagged[vertices, int])

	got := make([]int, 0, len(vals))
	for _, v := range vals {
		got = append(got, v.Value)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}
