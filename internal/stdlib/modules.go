package stdlib

import "axc/internal/builtins"

// KernelKind classifies how a kernel consumes its operands
type KernelKind string

const (
	Elementwise KernelKind = "elementwise" // used by map
	Reducer     KernelKind = "reducer"     // used by reduce
	Folder      KernelKind = "folder"      // used by fold over an array value
	Shifter     KernelKind = "shifter"     // used by axis_shift
)

// Shift policies for out of range axis_shift accesses
const (
	ShiftNull  = "null"
	ShiftClamp = "clamp"
	ShiftWrap  = "wrap"
)

// ModuleDefinition defines a kernel library module
type ModuleDefinition struct {
	Name      string                        // Module name (e.g., "core", "agg")
	Functions map[string]FunctionDefinition // Available kernels in this module
}

// FunctionDefinition describes one kernel
type FunctionDefinition struct {
	Name        string         // Kernel name (e.g., "sum", "mul")
	Kind        KernelKind     // How the kernel is applied
	Arity       int            // Number of operands, -1 for variadic
	ResultDType builtins.DType // Fixed result dtype, Unknown when it follows the operands
	Options     map[string]any // Extra options exposed through the registry
}

// NewFunction creates a kernel whose result dtype follows its operands
func NewFunction(name string, kind KernelKind, arity int) FunctionDefinition {
	return FunctionDefinition{Name: name, Kind: kind, Arity: arity}
}

// NewTypedFunction creates a kernel with a fixed result dtype
func NewTypedFunction(name string, kind KernelKind, arity int, result builtins.DType) FunctionDefinition {
	return FunctionDefinition{Name: name, Kind: kind, Arity: arity, ResultDType: result}
}

// NewShift creates an axis_shift kernel with its default out of range policy
func NewShift(name, policy string) FunctionDefinition {
	return FunctionDefinition{
		Name:    name,
		Kind:    Shifter,
		Arity:   1,
		Options: map[string]any{"shift_policy": policy},
	}
}

// GetStandardModules returns all built-in kernel modules
func GetStandardModules() map[string]*ModuleDefinition {
	return map[string]*ModuleDefinition{
		"core": {
			Name: "core",
			Functions: map[string]FunctionDefinition{
				"add": NewFunction("add", Elementwise, 2),
				"sub": NewFunction("sub", Elementwise, 2),
				"mul": NewFunction("mul", Elementwise, 2),
				"div": NewTypedFunction("div", Elementwise, 2, builtins.Float),
				"mod": NewFunction("mod", Elementwise, 2),
				"neg": NewFunction("neg", Elementwise, 1),
				"abs": NewFunction("abs", Elementwise, 1),
				"eq":  NewTypedFunction("eq", Elementwise, 2, builtins.Bool),
				"ne":  NewTypedFunction("ne", Elementwise, 2, builtins.Bool),
				"lt":  NewTypedFunction("lt", Elementwise, 2, builtins.Bool),
				"le":  NewTypedFunction("le", Elementwise, 2, builtins.Bool),
				"gt":  NewTypedFunction("gt", Elementwise, 2, builtins.Bool),
				"ge":  NewTypedFunction("ge", Elementwise, 2, builtins.Bool),
				"and": NewTypedFunction("and", Elementwise, 2, builtins.Bool),
				"or":  NewTypedFunction("or", Elementwise, 2, builtins.Bool),
				"not": NewTypedFunction("not", Elementwise, 1, builtins.Bool),
			},
		},
		"agg": {
			Name: "agg",
			Functions: map[string]FunctionDefinition{
				"sum":     NewFunction("sum", Reducer, 1),
				"product": NewFunction("product", Reducer, 1),
				"min":     NewFunction("min", Reducer, 1),
				"max":     NewFunction("max", Reducer, 1),
				"mean":    NewTypedFunction("mean", Reducer, 1, builtins.Float),
				"count":   NewTypedFunction("count", Reducer, 1, builtins.Int),
				"any":     NewTypedFunction("any", Reducer, 1, builtins.Bool),
				"all":     NewTypedFunction("all", Reducer, 1, builtins.Bool),
				"first":   NewFunction("first", Reducer, 1),
				"last":    NewFunction("last", Reducer, 1),
			},
		},
		"seq": {
			Name: "seq",
			Functions: map[string]FunctionDefinition{
				"length":  NewTypedFunction("length", Folder, 1, builtins.Int),
				"total":   NewFunction("total", Folder, 1),
				"average": NewTypedFunction("average", Folder, 1, builtins.Float),
				"join":    NewTypedFunction("join", Folder, 2, builtins.String),
				"lag":     NewShift("lag", ShiftNull),
				"lead":    NewShift("lead", ShiftNull),
				"rotate":  NewShift("rotate", ShiftWrap),
				"hold":    NewShift("hold", ShiftClamp),
			},
		},
	}
}

// ModuleOrder lists the modules in the order unqualified names are searched
var ModuleOrder = []string{"core", "agg", "seq"}

// IsKnownModule checks if a module name is a known kernel module
func IsKnownModule(moduleName string) bool {
	modules := GetStandardModules()
	_, exists := modules[moduleName]
	return exists
}

// IsValidShiftPolicy checks a shift policy name
func IsValidShiftPolicy(policy string) bool {
	switch policy {
	case ShiftNull, ShiftClamp, ShiftWrap:
		return true
	default:
		return false
	}
}
