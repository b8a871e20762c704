package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axc/internal/dataflow"
	"axc/internal/loopir"
)

func TestEnvStack(t *testing.T) {
	env := NewEnv()
	assert.Equal(t, 0, env.Depth())
	assert.True(t, env.Top().IsRoot())
	assert.Empty(t, env.Axes())

	a := &Frame{Axis: "a", Element: "%ea"}
	b := &Frame{Axis: "b", Element: "%eb"}
	inner := &Frame{Axis: "a", Element: "%ea2"}
	env.Push(a)
	env.Push(b)
	env.Push(inner)

	assert.Equal(t, 3, env.Depth())
	assert.Equal(t, []dataflow.Axis{"a", "b", "a"}, env.Axes())
	assert.Same(t, inner, env.FrameFor("a"))
	assert.Same(t, b, env.FrameFor("b"))
	assert.Nil(t, env.FrameFor("c"))

	el, ok := env.ElementFor("a")
	assert.True(t, ok)
	assert.Equal(t, loopir.Reg("%ea2"), el)
	_, ok = env.ElementFor("c")
	assert.False(t, ok)

	assert.Same(t, b, env.Parent(inner))
	assert.Same(t, env.Root(), env.Parent(a))
	assert.Nil(t, env.Parent(env.Root()))
	assert.Equal(t, 2, env.DepthOf(b))
}

func TestEnvClose(t *testing.T) {
	env := NewEnv()
	outer := &Frame{Axis: "a"}
	inner := &Frame{Axis: "b"}
	env.Push(outer)
	env.Push(inner)

	inner.add(&loopir.Instruction{Op: loopir.OpMap, Result: "%t0"})
	inner.After = append(inner.After, &loopir.Instruction{Op: loopir.OpLoadAccumulator, Result: "%t1"})

	closed, err := env.Close()
	require.NoError(t, err)
	assert.Same(t, inner, closed)
	assert.False(t, env.Contains(inner))
	assert.Nil(t, env.Parent(inner))

	require.Len(t, outer.Items, 2)
	assert.Same(t, inner, outer.Items[0].frame)
	require.NotNil(t, outer.Items[1].inst)
	assert.Equal(t, loopir.OpLoadAccumulator, outer.Items[1].inst.Op)

	_, err = env.Close()
	require.NoError(t, err)
	require.Len(t, env.Root().Items, 1)

	_, err = env.Close()
	assert.Error(t, err)
}

func TestEnvSuspendResume(t *testing.T) {
	env := NewEnv()
	a := &Frame{Axis: "a"}
	b := &Frame{Axis: "b"}
	c := &Frame{Axis: "c"}
	env.Push(a)
	env.Push(b)
	env.Push(c)

	above, err := env.Suspend(a)
	require.NoError(t, err)
	require.Len(t, above, 2)
	assert.Same(t, b, above[0])
	assert.Same(t, c, above[1])
	assert.Same(t, a, env.Top())
	assert.False(t, env.Contains(b))

	fresh := &Frame{Axis: "b"}
	env.Push(fresh)
	_, err = env.Close()
	require.NoError(t, err)

	env.Resume(above)
	assert.Equal(t, []dataflow.Axis{"a", "b", "c"}, env.Axes())
	assert.Same(t, c, env.Top())
	assert.Same(t, fresh, a.Items[len(a.Items)-1].frame)

	_, err = env.Suspend(fresh)
	assert.Error(t, err)
}
