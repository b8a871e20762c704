package lower

import (
	"slices"

	"axc/internal/builtins"
	"axc/internal/dataflow"
	"axc/internal/loopir"
	"axc/internal/stdlib"
)

// translate emits the loop form of a non-reduce instruction into f
func (s *Session) translate(inst *dataflow.Instruction, f *Frame) error {
	switch inst.Op {
	case dataflow.OpConstant:
		return s.translateSimple(inst, f, loopir.OpConstant)
	case dataflow.OpLoadInput:
		return s.translateLoadInput(inst, f)
	case dataflow.OpLoadField:
		return s.translateLoadField(inst, f)
	case dataflow.OpMap:
		return s.translateSimple(inst, f, loopir.OpMap)
	case dataflow.OpSelect:
		return s.translateSimple(inst, f, loopir.OpSelect)
	case dataflow.OpAxisShift:
		return s.translateAxisShift(inst, f)
	case dataflow.OpAxisBroadcast:
		return s.translateAxisBroadcast(inst, f)
	case dataflow.OpArrayBuild:
		return s.translateSimple(inst, f, loopir.OpArrayBuild)
	case dataflow.OpArrayGet:
		return s.translateSimple(inst, f, loopir.OpArrayGet)
	case dataflow.OpArrayLen:
		return s.translateSimple(inst, f, loopir.OpArrayLen)
	case dataflow.OpAxisIndex:
		return s.translateAxisIndex(inst, f)
	case dataflow.OpFold:
		return s.translateFold(inst, f)
	case dataflow.OpDeclRef:
		return s.translateSimple(inst, f, loopir.OpDeclRef)
	case dataflow.OpImportCall:
		return s.translateSimple(inst, f, loopir.OpImportCall)
	case dataflow.OpMakeObject:
		return s.translateSimple(inst, f, loopir.OpMakeObject)
	case dataflow.OpMakeTuple:
		return s.translateSimple(inst, f, loopir.OpMakeTuple)
	case dataflow.OpTupleGet:
		return s.translateSimple(inst, f, loopir.OpTupleGet)
	case dataflow.OpReduce:
		return structuralf("reduce %s translated without its accumulator", inst.Result)
	default:
		return &NotImplementedError{Op: inst.Op}
	}
}

// translateSimple maps an instruction one to one, inputs substituted
func (s *Session) translateSimple(inst *dataflow.Instruction, f *Frame, op loopir.Opcode) error {
	args, err := s.operands(inst.Inputs)
	if err != nil {
		return err
	}
	s.emitResult(inst, f, &loopir.Instruction{
		Op:    op,
		Args:  args,
		DType: inst.DType,
		Attrs: inst.Attrs.Without("plan"),
	})
	return nil
}

// emitResult gives out a fresh register for the instruction result
func (s *Session) emitResult(inst *dataflow.Instruction, f *Frame, out *loopir.Instruction) {
	if inst.Result != "" {
		out.Result = s.fresh("t")
		s.bind(inst.Result, out.Result)
	}
	if len(out.Attrs) == 0 {
		out.Attrs = nil
	}
	s.emit(f, out)
}

func (s *Session) translateLoadInput(inst *dataflow.Instruction, f *Frame) error {
	if !inst.IsScalar() {
		if ok := s.reuseOpenElement(inst, f); ok {
			return nil
		}
	}
	path, _ := inst.Attrs.Str("path")
	if f.IsRoot() && inst.IsScalar() {
		if r, ok := s.heads[path]; ok && s.visible(r) {
			s.bind(inst.Result, r)
			return nil
		}
	}
	if err := s.translateSimple(inst, f, loopir.OpLoadInput); err != nil {
		return err
	}
	if f.IsRoot() && inst.IsScalar() {
		s.heads[path] = s.regs[inst.Result]
	}
	return nil
}

func (s *Session) translateLoadField(inst *dataflow.Instruction, f *Frame) error {
	if ok := s.reuseOpenElement(inst, f); ok {
		return nil
	}
	return s.translateSimple(inst, f, loopir.OpLoadField)
}

// reuseOpenElement reads a planned value from the element of an open loop
// when the plan reaches it by field keys alone, instead of walking again
// from the instruction input.
func (s *Session) reuseOpenElement(inst *dataflow.Instruction, f *Frame) bool {
	entry := s.lookupPlan(inst.PlanRef())
	if entry == nil || entry.LastLoop < 0 {
		return false
	}
	axis := entry.LastAxis()
	if !slices.Contains(inst.Axes, axis) {
		return false
	}
	el, ok := s.env.ElementFor(axis)
	if !ok {
		return false
	}
	if entry.ElementTerminal {
		s.bind(inst.Result, el)
		return true
	}
	if len(entry.TailKeys) == 0 {
		return false
	}
	s.bind(inst.Result, s.walk(f, el, entry.TailKeys, inst.DType))
	return true
}

func (s *Session) translateAxisShift(inst *dataflow.Instruction, f *Frame) error {
	operand, err := s.operand(inst.Inputs[0])
	if err != nil {
		return err
	}
	offset, err := s.shiftOffset(inst)
	if err != nil {
		return err
	}
	policy, err := s.shiftPolicy(inst)
	if err != nil {
		return err
	}
	axis, err := s.instructionAxis(inst)
	if err != nil {
		return err
	}

	attrs := inst.Attrs.Without("plan", "offset", "policy", "axis")
	attrs["offset"] = offset
	attrs["policy"] = policy
	s.emitResult(inst, f, &loopir.Instruction{
		Op:    loopir.OpAxisShift,
		Args:  []loopir.Reg{operand},
		Axis:  axis,
		DType: inst.DType,
		Attrs: attrs,
	})
	return nil
}

// shiftOffset reads the offset from the attribute or from a second input
// defined by an integer constant
func (s *Session) shiftOffset(inst *dataflow.Instruction) (int64, error) {
	if v, ok := inst.Attrs["offset"]; ok {
		n, ok := v.(int64)
		if !ok {
			return 0, &MalformedLiteralError{Op: inst.Op, Attr: "offset", Msg: "must be an integer literal, got " + dataflow.FormatValue(v)}
		}
		return n, nil
	}
	if len(inst.Inputs) < 2 {
		return 0, &MalformedLiteralError{Op: inst.Op, Attr: "offset", Msg: "missing"}
	}
	src := inst.Inputs[1]
	def, ok := s.defs[src]
	if !ok || def.Op != dataflow.OpConstant {
		return 0, &MalformedLiteralError{Op: inst.Op, Attr: "offset", Msg: string(src) + " is not a constant"}
	}
	n, ok := def.Attrs.Int("value")
	if !ok {
		return 0, &MalformedLiteralError{Op: inst.Op, Attr: "offset", Msg: string(src) + " is not an integer constant"}
	}
	return n, nil
}

// shiftPolicy returns the policy attribute, else the kernel default, else null
func (s *Session) shiftPolicy(inst *dataflow.Instruction) (string, error) {
	if v, ok := inst.Attrs["policy"]; ok {
		p, ok := v.(string)
		if !ok || !stdlib.IsValidShiftPolicy(p) {
			return "", &MalformedLiteralError{Op: inst.Op, Attr: "policy", Msg: "unknown shift policy " + dataflow.FormatValue(v)}
		}
		return p, nil
	}
	if opts := s.kernelOptions(inst); opts != nil {
		if p, ok := opts["shift_policy"].(string); ok {
			return p, nil
		}
	}
	return stdlib.ShiftNull, nil
}

// kernelOptions resolves the fn attribute, nil when it cannot be resolved
func (s *Session) kernelOptions(inst *dataflow.Instruction) map[string]any {
	name, ok := inst.Attrs.Str("fn")
	if !ok || s.registry == nil {
		return nil
	}
	id, err := s.registry.ResolveFunction(name)
	if err != nil {
		log.Debugf("%s: %s", s.fn.Name, err)
		return nil
	}
	opts, err := s.registry.FunctionOptions(id)
	if err != nil {
		log.Debugf("%s: %s", s.fn.Name, err)
		return nil
	}
	return opts
}

// instructionAxis returns the axis attribute, else the innermost axis
func (s *Session) instructionAxis(inst *dataflow.Instruction) (dataflow.Axis, error) {
	if v, ok := inst.Attrs["axis"]; ok {
		name, ok := v.(string)
		if !ok {
			return "", &MalformedLiteralError{Op: inst.Op, Attr: "axis", Msg: "must name an axis"}
		}
		return dataflow.Axis(name), nil
	}
	if inst.IsScalar() {
		return "", &MalformedLiteralError{Op: inst.Op, Attr: "axis", Msg: "missing and the instruction has no axes"}
	}
	return inst.Axes[len(inst.Axes)-1], nil
}

func (s *Session) translateAxisBroadcast(inst *dataflow.Instruction, f *Frame) error {
	operand, err := s.operand(inst.Inputs[0])
	if err != nil {
		return err
	}
	axis, err := s.instructionAxis(inst)
	if err != nil {
		return err
	}
	s.emitResult(inst, f, &loopir.Instruction{
		Op:    loopir.OpAxisBroadcast,
		Args:  []loopir.Reg{operand},
		Axis:  axis,
		DType: inst.DType,
		Attrs: inst.Attrs.Without("plan", "axis"),
	})
	return nil
}

func (s *Session) translateAxisIndex(inst *dataflow.Instruction, f *Frame) error {
	axis, err := s.instructionAxis(inst)
	if err != nil {
		return err
	}
	loop := s.env.FrameFor(axis)
	if loop == nil {
		return &UnresolvedAxisError{Axis: axis, Op: inst.Op, Reason: "no open loop to take the index of"}
	}
	dtype := inst.DType
	if dtype == builtins.Unknown {
		dtype = builtins.Int
	}
	s.emitResult(inst, f, &loopir.Instruction{
		Op:    loopir.OpAxisIndex,
		Args:  []loopir.Reg{loop.Index},
		Axis:  axis,
		DType: dtype,
		Attrs: inst.Attrs.Without("plan", "axis"),
	})
	return nil
}

// translateFold types the result with the kernel's result dtype, falling
// back to the operand dtype when the kernel does not fix one
func (s *Session) translateFold(inst *dataflow.Instruction, f *Frame) error {
	operand, err := s.operand(inst.Inputs[0])
	if err != nil {
		return err
	}
	dtype := builtins.Unknown
	if opts := s.kernelOptions(inst); opts != nil {
		if dt, ok := opts["result_dtype"].(string); ok {
			dtype = builtins.DType(dt)
		}
	}
	if dtype == builtins.Unknown {
		if def, ok := s.defs[inst.Inputs[0]]; ok {
			dtype = def.DType
		}
	}
	s.emitResult(inst, f, &loopir.Instruction{
		Op:    loopir.OpFold,
		Args:  []loopir.Reg{operand},
		DType: dtype,
		Attrs: inst.Attrs.Without("plan"),
	})
	return nil
}
