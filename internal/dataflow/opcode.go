package dataflow

// Opcode is the closed set of dataflow operations
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
	OpReduce
	// OpStencil is produced by stencil detection and has no loop form yet
	OpStencil

	opcodeCount
)

// OpInfo describes the static shape of an opcode
type OpInfo struct {
	Name        string
	MinInputs   int
	MaxInputs   int // -1 for variadic
	NeedsResult bool
}

var opTable = [opcodeCount]OpInfo{
	OpInvalid:       {"invalid", 0, 0, false},
	OpConstant:      {"constant", 0, 0, true},
	OpLoadInput:     {"load_input", 0, 0, true},
	OpLoadField:     {"load_field", 1, 1, true},
	OpMap:           {"map", 1, -1, true},
	OpSelect:        {"select", 3, 3, true},
	OpAxisShift:     {"axis_shift", 1, 2, true},
	OpAxisBroadcast: {"axis_broadcast", 1, 1, true},
	OpArrayBuild:    {"array_build", 0, -1, true},
	OpArrayGet:      {"array_get", 2, 2, true},
	OpArrayLen:      {"array_len", 1, 1, true},
	OpAxisIndex:     {"axis_index", 0, 0, true},
	OpFold:          {"fold", 1, 1, true},
	OpDeclRef:       {"decl_ref", 0, 0, true},
	OpImportCall:    {"import_call", 0, -1, false},
	OpMakeObject:    {"make_object", 0, -1, true},
	OpMakeTuple:     {"make_tuple", 0, -1, true},
	OpTupleGet:      {"tuple_get", 1, 1, true},
	OpReduce:        {"reduce", 1, 1, true},
	OpStencil:       {"stencil", 1, -1, true},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		m[opTable[op].Name] = op
	}
	return m
}()

// LookupOpcode returns the opcode for a textual name
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Opcodes returns every valid opcode in declaration order
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, opcodeCount-1)
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// OpcodeNames returns the names of Opcodes()
func OpcodeNames() []string {
	names := make([]string, 0, opcodeCount-1)
	for _, op := range Opcodes() {
		names = append(names, op.String())
	}
	return names
}

func (op Opcode) Info() OpInfo {
	if op <= OpInvalid || op >= opcodeCount {
		return opTable[OpInvalid]
	}
	return opTable[op]
}

func (op Opcode) String() string {
	return op.Info().Name
}

func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount
}

// AcceptsInputs checks an input count against the opcode arity
func (op Opcode) AcceptsInputs(n int) bool {
	info := op.Info()
	if n < info.MinInputs {
		return false
	}
	return info.MaxInputs < 0 || n <= info.MaxInputs
}

// IsScopeFree reports opcodes whose value does not depend on any open loop
// when they carry no axes and no inputs.
func (op Opcode) IsScopeFree() bool {
	switch op {
	case OpConstant, OpDeclRef, OpLoadInput:
		return true
	default:
		return false
	}
}
