package dataflow

import (
	"fmt"
	"slices"
	"strings"

	"axc/internal/builtins"
)

// Dataflow graph in straight-line form. Every instruction result is defined
// for all combinations of its axes; there is no explicit control flow.

// Axis names an iteration dimension
type Axis string

// Reg is a single-assignment value register
type Reg string

// Position locates an instruction in its source file
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Line == 0 {
		return p.Filename
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Graph is a named collection of dataflow functions, one per declaration
type Graph struct {
	Name      string
	Functions []*Function
}

// Function returns the function with the given name, or nil
func (g *Graph) Function(name string) *Function {
	for _, fn := range g.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Function is one declaration lowered to a single block of instructions
type Function struct {
	Name    string
	Body    []*Instruction
	Outputs []Reg
	Pos     Position
}

// Definitions maps every result register to its defining instruction
func (f *Function) Definitions() map[Reg]*Instruction {
	defs := make(map[Reg]*Instruction, len(f.Body))
	for _, inst := range f.Body {
		if inst.Result != "" {
			defs[inst.Result] = inst
		}
	}
	return defs
}

// Uses counts how often each register is read, outputs included
func (f *Function) Uses() map[Reg]int {
	uses := make(map[Reg]int)
	for _, inst := range f.Body {
		for _, in := range inst.Inputs {
			uses[in]++
		}
	}
	for _, out := range f.Outputs {
		uses[out]++
	}
	return uses
}

// Instruction is an axis and dtype tagged dataflow operation
type Instruction struct {
	Op     Opcode
	Result Reg
	Inputs []Reg
	Attrs  Attrs
	Axes   []Axis
	Over   []Axis // reduce only: operand axes dropped by the reduction
	DType  builtins.DType
	Pos    Position
}

// Stamp is the shape and type signature of a value
type Stamp struct {
	Axes  []Axis
	DType builtins.DType
}

func (s Stamp) String() string {
	return fmt.Sprintf("[%s] %s", JoinAxes(s.Axes), s.DType)
}

func (i *Instruction) Stamp() Stamp {
	return Stamp{Axes: i.Axes, DType: i.DType}
}

// Scope returns the axes that must be open to evaluate the instruction
func (i *Instruction) Scope() []Axis {
	if i.Op != OpReduce || len(i.Over) == 0 {
		return i.Axes
	}
	scope := make([]Axis, 0, len(i.Axes)+len(i.Over))
	scope = append(scope, i.Axes...)
	return append(scope, i.Over...)
}

// PlanRef returns the access plan reference attached to the instruction
func (i *Instruction) PlanRef() string {
	ref, _ := i.Attrs.Str("plan")
	return ref
}

// IsScalar reports an instruction evaluated outside of every loop
func (i *Instruction) IsScalar() bool {
	return len(i.Axes) == 0
}

// Clone returns a deep copy of the instruction
func (i *Instruction) Clone() *Instruction {
	c := *i
	c.Inputs = slices.Clone(i.Inputs)
	c.Axes = slices.Clone(i.Axes)
	c.Over = slices.Clone(i.Over)
	c.Attrs = i.Attrs.Clone()
	return &c
}

func (i *Instruction) String() string {
	return instrToGrammar(i).String()
}

// JoinAxes renders an axis list as "a, b"
func JoinAxes(axes []Axis) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}

// HasPrefix reports whether prefix is a leading subsequence of axes
func HasPrefix(axes, prefix []Axis) bool {
	return len(prefix) <= len(axes) && slices.Equal(axes[:len(prefix)], prefix)
}
