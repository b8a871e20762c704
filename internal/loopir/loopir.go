package loopir

import (
	"axc/internal/builtins"
	"axc/internal/dataflow"
)

// Loop IR: one flat block per declaration with explicit loop_start and
// loop_end markers and accumulator instructions for reductions.

// Opcode is the closed set of loop IR operations
type Opcode int

const (
	OpInvalid Opcode = iota
	OpConstant
	OpLoadInput
	OpLoadField
	OpMap
	OpSelect
	OpAxisShift
	OpAxisBroadcast
	OpArrayBuild
	OpArrayGet
	OpArrayLen
	OpAxisIndex
	OpFold
	OpDeclRef
	OpImportCall
	OpMakeObject
	OpMakeTuple
	OpTupleGet
	OpLoopStart
	OpLoopEnd
	OpDeclareAccumulator
	OpAccumulate
	OpLoadAccumulator
	OpYield

	opcodeCount
)

var opNames = [opcodeCount]string{
	OpInvalid:            "invalid",
	OpConstant:           "constant",
	OpLoadInput:          "load_input",
	OpLoadField:          "load_field",
	OpMap:                "map",
	OpSelect:             "select",
	OpAxisShift:          "axis_shift",
	OpAxisBroadcast:      "axis_broadcast",
	OpArrayBuild:         "array_build",
	OpArrayGet:           "array_get",
	OpArrayLen:           "array_len",
	OpAxisIndex:          "axis_index",
	OpFold:               "fold",
	OpDeclRef:            "decl_ref",
	OpImportCall:         "import_call",
	OpMakeObject:         "make_object",
	OpMakeTuple:          "make_tuple",
	OpTupleGet:           "tuple_get",
	OpLoopStart:          "loop_start",
	OpLoopEnd:            "loop_end",
	OpDeclareAccumulator: "declare_accumulator",
	OpAccumulate:         "accumulate",
	OpLoadAccumulator:    "load_accumulator",
	OpYield:              "yield",
}

func (op Opcode) String() string {
	if op < 0 || op >= opcodeCount {
		return opNames[OpInvalid]
	}
	return opNames[op]
}

// Reg is a loop IR register
type Reg string

// Instruction is one loop IR operation. Field use depends on the opcode:
//
//	loop_start:          Result = element, Index = index, Args = [collection], Axis, Loop
//	loop_end:            Loop
//	declare_accumulator: Result = accumulator, Axes = result axes, Attrs["fn"]
//	accumulate:          Args = [accumulator, value]
//	load_accumulator:    Result, Args = [accumulator]
//	yield:               Args = outputs
type Instruction struct {
	Op     Opcode
	Result Reg
	Index  Reg
	Args   []Reg
	Axis   dataflow.Axis
	Axes   []dataflow.Axis
	DType  builtins.DType
	Loop   string
	Attrs  dataflow.Attrs
}

// Defs returns the registers the instruction defines
func (i *Instruction) Defs() []Reg {
	var defs []Reg
	if i.Result != "" {
		defs = append(defs, i.Result)
	}
	if i.Index != "" {
		defs = append(defs, i.Index)
	}
	return defs
}

// Function is a lowered declaration
type Function struct {
	Name    string
	Body    []*Instruction
	Outputs []Reg
}

// Opcodes returns the opcode sequence of the body, used by tests and tools
func (f *Function) Opcodes() []string {
	ops := make([]string, len(f.Body))
	for i, inst := range f.Body {
		ops[i] = inst.Op.String()
	}
	return ops
}
