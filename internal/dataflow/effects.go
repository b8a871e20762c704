package dataflow

// Effect classifies what evaluating an instruction does besides
// producing its result
type Effect string

const (
	EffectPure   Effect = "pure"   // depends only on its inputs
	EffectRead   Effect = "read"   // reads the immutable input document
	EffectReduce Effect = "reduce" // carries accumulator state across iterations
	EffectCall   Effect = "call"   // calls out of the graph, may have side effects
)

// EffectOf returns the effect of an opcode
func EffectOf(op Opcode) Effect {
	switch op {
	case OpLoadInput, OpLoadField:
		return EffectRead
	case OpReduce:
		return EffectReduce
	case OpImportCall:
		return EffectCall
	default:
		return EffectPure
	}
}

// IsPure reports whether an instruction may be duplicated, merged or
// dropped when its result is unused. Input reads are pure since the
// input document never changes during evaluation.
func IsPure(inst *Instruction) bool {
	return EffectOf(inst.Op) != EffectCall
}

// IsRecomputable reports whether an instruction can be evaluated again
// in a different loop context and yield the same value.
func IsRecomputable(inst *Instruction) bool {
	switch EffectOf(inst.Op) {
	case EffectPure, EffectRead:
		return true
	default:
		return false
	}
}
