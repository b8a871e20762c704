package loopir

import (
	"slices"

	"github.com/pkg/errors"

	"axc/internal/dataflow"
)

// Builder appends instructions to a function and tracks open loops
type Builder struct {
	fn      *Function
	open    []string
	yielded bool
}

// NewBuilder creates a builder for a named function
func NewBuilder(name string) *Builder {
	return &Builder{fn: &Function{Name: name}}
}

// Depth returns the number of open loops
func (b *Builder) Depth() int {
	return len(b.open)
}

// Emit appends a plain instruction
func (b *Builder) Emit(inst *Instruction) error {
	switch inst.Op {
	case OpLoopStart, OpLoopEnd, OpYield:
		return errors.Errorf("%s must be emitted through its builder method", inst.Op)
	case OpInvalid:
		return errors.New("cannot emit an invalid instruction")
	}
	if b.yielded {
		return errors.Errorf("%s emitted after yield", inst.Op)
	}
	b.fn.Body = append(b.fn.Body, inst)
	return nil
}

// LoopStart opens a loop over collection, binding element and index
func (b *Builder) LoopStart(axis dataflow.Axis, collection, element, index Reg, id string) error {
	if b.yielded {
		return errors.Errorf("loop %s started after yield", id)
	}
	if slices.Contains(b.open, id) {
		return errors.Errorf("loop %s is already open", id)
	}
	b.open = append(b.open, id)
	b.fn.Body = append(b.fn.Body, &Instruction{
		Op:     OpLoopStart,
		Result: element,
		Index:  index,
		Args:   []Reg{collection},
		Axis:   axis,
		Loop:   id,
	})
	return nil
}

// LoopEnd closes the innermost loop, which must be id
func (b *Builder) LoopEnd(id string) error {
	if len(b.open) == 0 {
		return errors.Errorf("loop_end %s without an open loop", id)
	}
	if top := b.open[len(b.open)-1]; top != id {
		return errors.Errorf("loop_end %s does not match open loop %s", id, top)
	}
	b.open = b.open[:len(b.open)-1]
	b.fn.Body = append(b.fn.Body, &Instruction{Op: OpLoopEnd, Loop: id})
	return nil
}

// Yield closes the function body with its outputs
func (b *Builder) Yield(outputs ...Reg) error {
	if b.yielded {
		return errors.New("yield emitted twice")
	}
	if len(b.open) > 0 {
		return errors.Errorf("yield inside open loop %s", b.open[len(b.open)-1])
	}
	b.yielded = true
	b.fn.Outputs = slices.Clone(outputs)
	b.fn.Body = append(b.fn.Body, &Instruction{Op: OpYield, Args: slices.Clone(outputs)})
	return nil
}

// Function returns the finished function
func (b *Builder) Function() (*Function, error) {
	if len(b.open) > 0 {
		return nil, errors.Errorf("loop %s is never closed", b.open[len(b.open)-1])
	}
	if !b.yielded {
		return nil, errors.New("function has no yield")
	}
	return b.fn, nil
}
