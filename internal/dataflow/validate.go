package dataflow

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"axc/internal/builtins"
)

// ValidationError is one malformed instruction or output
type ValidationError struct {
	Func string
	Pos  Position
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Func, e.Msg)
}

// Validate checks the structural rules lowering relies on and returns
// every violation found in the function.
func Validate(fn *Function) error {
	v := &validator{fn: fn, defs: make(map[Reg]*Instruction)}
	for _, inst := range fn.Body {
		v.checkInstruction(inst)
	}
	for _, out := range fn.Outputs {
		def, ok := v.defs[out]
		if !ok {
			v.errorf(fn.Pos, "output %s is never defined", out)
			continue
		}
		if !def.IsScalar() {
			v.errorf(def.Pos, "output %s has axes [%s]; outputs must be scalar", out, JoinAxes(def.Axes))
		}
	}
	return v.errs
}

// ValidateGraph validates every function of a graph
func ValidateGraph(g *Graph) error {
	var errs error
	seen := make(map[string]bool)
	for _, fn := range g.Functions {
		if seen[fn.Name] {
			errs = multierr.Append(errs, &ValidationError{Func: fn.Name, Pos: fn.Pos, Msg: "duplicate function"})
		}
		seen[fn.Name] = true
		errs = multierr.Append(errs, Validate(fn))
	}
	return errs
}

type validator struct {
	fn   *Function
	defs map[Reg]*Instruction
	errs error
}

func (v *validator) errorf(pos Position, format string, args ...any) {
	v.errs = multierr.Append(v.errs, &ValidationError{
		Func: v.fn.Name,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (v *validator) checkInstruction(inst *Instruction) {
	if !inst.Op.Valid() {
		v.errorf(inst.Pos, "invalid opcode")
		return
	}
	info := inst.Op.Info()
	if !inst.Op.AcceptsInputs(len(inst.Inputs)) {
		v.errorf(inst.Pos, "%s takes %s, got %d", inst.Op, arityString(info), len(inst.Inputs))
	}
	if info.NeedsResult && inst.Result == "" {
		v.errorf(inst.Pos, "%s must define a result", inst.Op)
	}
	if inst.DType != builtins.Unknown && !builtins.IsBuiltinType(string(inst.DType)) {
		v.errorf(inst.Pos, "unknown dtype %q", inst.DType)
	}
	if len(inst.Over) > 0 && inst.Op != OpReduce {
		v.errorf(inst.Pos, "only reduce may drop axes")
	}
	if dup, ok := duplicateAxis(inst.Scope()); ok {
		v.errorf(inst.Pos, "axis %s appears twice", dup)
	}

	scope := inst.Scope()
	for _, in := range inst.Inputs {
		def, ok := v.defs[in]
		if !ok {
			v.errorf(inst.Pos, "%s is used before it is defined", in)
			continue
		}
		if !HasPrefix(scope, def.Axes) {
			v.errorf(inst.Pos, "input %s has axes [%s], not a prefix of [%s]", in, JoinAxes(def.Axes), JoinAxes(scope))
		}
	}
	v.checkAttrs(inst)

	if inst.Result != "" {
		if prev, ok := v.defs[inst.Result]; ok {
			v.errorf(inst.Pos, "%s is already defined at %s", inst.Result, prev.Pos)
			return
		}
		v.defs[inst.Result] = inst
	}
}

func (v *validator) checkAttrs(inst *Instruction) {
	need := func(key string) {
		if _, ok := inst.Attrs[key]; !ok {
			v.errorf(inst.Pos, "%s requires attribute %q", inst.Op, key)
		}
	}
	switch inst.Op {
	case OpConstant:
		need("value")
	case OpLoadInput:
		need("path")
	case OpLoadField:
		need("key")
	case OpMap, OpFold, OpReduce, OpImportCall:
		need("fn")
	case OpDeclRef:
		need("name")
	case OpTupleGet:
		need("index")
	case OpAxisIndex:
		need("axis")
		if axis, ok := inst.Attrs.Str("axis"); ok && !slices.Contains(inst.Axes, Axis(axis)) {
			v.errorf(inst.Pos, "axis_index over %s outside of its axes [%s]", axis, JoinAxes(inst.Axes))
		}
	}
	if inst.Op == OpReduce && len(inst.Over) == 0 && len(inst.Inputs) == 1 {
		if def, ok := v.defs[inst.Inputs[0]]; ok && len(def.Axes) > len(inst.Axes) {
			v.errorf(inst.Pos, "reduce of [%s] to [%s] must name the dropped axes", JoinAxes(def.Axes), JoinAxes(inst.Axes))
		}
	}
}

func arityString(info OpInfo) string {
	switch {
	case info.MaxInputs < 0:
		return fmt.Sprintf("at least %d inputs", info.MinInputs)
	case info.MinInputs == info.MaxInputs:
		return fmt.Sprintf("%d inputs", info.MinInputs)
	default:
		return fmt.Sprintf("%d to %d inputs", info.MinInputs, info.MaxInputs)
	}
}

func duplicateAxis(axes []Axis) (Axis, bool) {
	seen := make(map[Axis]bool, len(axes))
	for _, a := range axes {
		if seen[a] {
			return a, true
		}
		seen[a] = true
	}
	return "", false
}
