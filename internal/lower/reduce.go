package lower

import (
	"axc/internal/dataflow"
	"axc/internal/loopir"
)

// lowerReduce splits a reduction into declare, accumulate and load.
//
// The owning frame is the loop over the first reduced axis. The accumulator
// is declared in its parent so it lives for one full pass of the reduced
// axes, and the final load is deferred until the owning loop closes. A
// reduction that drops no axis owns the frame of its innermost result axis
// and declares, accumulates and loads there.
func (s *Session) lowerReduce(inst *dataflow.Instruction) error {
	operand, err := s.operand(inst.Inputs[0])
	if err != nil {
		return err
	}

	var owner *Frame
	switch {
	case len(inst.Over) > 0:
		owner = s.env.FrameFor(inst.Over[0])
	case len(inst.Axes) > 0:
		owner = s.env.FrameFor(inst.Axes[len(inst.Axes)-1])
	default:
		owner = s.env.Root()
	}
	if owner == nil {
		return structuralf("no open loop owns reduce %s", inst.Result)
	}

	declareIn := owner
	if len(inst.Over) > 0 {
		declareIn = s.env.Parent(owner)
		if declareIn == nil {
			return structuralf("reduce %s over the root frame", inst.Result)
		}
	}

	fn, _ := inst.Attrs.Str("fn")
	acc := s.fresh("acc")
	s.emit(declareIn, &loopir.Instruction{
		Op:     loopir.OpDeclareAccumulator,
		Result: acc,
		Axes:   inst.Axes,
		DType:  inst.DType,
		Attrs:  dataflow.Attrs{"fn": fn},
	})
	s.emit(s.env.Top(), &loopir.Instruction{
		Op:   loopir.OpAccumulate,
		Args: []loopir.Reg{acc, operand},
	})

	load := &loopir.Instruction{
		Op:     loopir.OpLoadAccumulator,
		Result: s.fresh("t"),
		Args:   []loopir.Reg{acc},
		DType:  inst.DType,
	}
	s.bind(inst.Result, load.Result)
	if len(inst.Over) == 0 {
		s.emit(s.env.Top(), load)
		return nil
	}
	owner.After = append(owner.After, load)
	s.pending[inst.Result] = owner
	return nil
}
