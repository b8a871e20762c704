package lower

import (
	"slices"

	"axc/internal/dataflow"
	"axc/internal/loopir"
)

// item is one entry of a frame body: an instruction or a closed sub-loop
type item struct {
	inst  *loopir.Instruction
	frame *Frame
}

// Frame is one open loop, or the root when Axis is empty
type Frame struct {
	Axis       dataflow.Axis
	Element    loopir.Reg
	Index      loopir.Reg
	Collection loopir.Reg
	Items      []item
	After      []*loopir.Instruction // emitted right after the loop closes
}

func (f *Frame) IsRoot() bool {
	return f.Axis == ""
}

func (f *Frame) add(inst *loopir.Instruction) {
	f.Items = append(f.Items, item{inst: inst})
}

// Env is the stack of open frames. It is linear at all times; closed
// frames live on in their parent's Items.
type Env struct {
	stack []*Frame
}

// NewEnv creates a stack holding only the root frame
func NewEnv() *Env {
	return &Env{stack: []*Frame{{}}}
}

func (e *Env) Push(f *Frame) {
	e.stack = append(e.stack, f)
}

// Pop removes the innermost frame. The root frame cannot be popped.
func (e *Env) Pop() (*Frame, error) {
	if len(e.stack) <= 1 {
		return nil, structuralf("pop of the root frame")
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return top, nil
}

// Close pops the innermost frame into its parent's body, followed by the
// instructions it deferred.
func (e *Env) Close() (*Frame, error) {
	closed, err := e.Pop()
	if err != nil {
		return nil, err
	}
	parent := e.Top()
	parent.Items = append(parent.Items, item{frame: closed})
	for _, inst := range closed.After {
		parent.add(inst)
	}
	return closed, nil
}

func (e *Env) Top() *Frame {
	return e.stack[len(e.stack)-1]
}

func (e *Env) Root() *Frame {
	return e.stack[0]
}

// Depth returns the number of open loops, root excluded
func (e *Env) Depth() int {
	return len(e.stack) - 1
}

// Axes returns the open axes, outermost first
func (e *Env) Axes() []dataflow.Axis {
	axes := make([]dataflow.Axis, 0, len(e.stack)-1)
	for _, f := range e.stack[1:] {
		axes = append(axes, f.Axis)
	}
	return axes
}

// FrameFor returns the nearest enclosing frame looping over axis
func (e *Env) FrameFor(axis dataflow.Axis) *Frame {
	for i := len(e.stack) - 1; i > 0; i-- {
		if e.stack[i].Axis == axis {
			return e.stack[i]
		}
	}
	return nil
}

// ElementFor returns the element register of the nearest loop over axis
func (e *Env) ElementFor(axis dataflow.Axis) (loopir.Reg, bool) {
	f := e.FrameFor(axis)
	if f == nil {
		return "", false
	}
	return f.Element, true
}

// Parent returns the frame enclosing f, nil for the root or a closed frame
func (e *Env) Parent(f *Frame) *Frame {
	if d := e.DepthOf(f); d > 0 {
		return e.stack[d-1]
	}
	return nil
}

// DepthOf returns the stack position of f (root is 0), -1 when not open
func (e *Env) DepthOf(f *Frame) int {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i] == f {
			return i
		}
	}
	return -1
}

// Suspend cuts the stack right above f and returns the frames it removed,
// outermost first. Resume puts them back.
func (e *Env) Suspend(f *Frame) ([]*Frame, error) {
	d := e.DepthOf(f)
	if d < 0 {
		return nil, structuralf("suspend above a frame that is not open")
	}
	above := slices.Clone(e.stack[d+1:])
	e.stack = e.stack[:d+1]
	return above, nil
}

func (e *Env) Resume(frames []*Frame) {
	e.stack = append(e.stack, frames...)
}

func (e *Env) Contains(f *Frame) bool {
	return e.DepthOf(f) >= 0
}
