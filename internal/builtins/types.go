package builtins

// DType is the element type carried by dataflow and loop instructions
type DType string

const (
	Unknown DType = ""

	// Scalars
	Bool   DType = "bool"
	Int    DType = "i64"
	Float  DType = "f64"
	String DType = "str"

	// Structured values
	Object DType = "object"
	List   DType = "list"
	Tuple  DType = "tuple"

	// Any is used by kernels that accept or produce every dtype
	Any DType = "any"
)

// BuiltinTypes contains all valid dtype names
var BuiltinTypes = map[string]bool{
	string(Bool):   true,
	string(Int):    true,
	string(Float):  true,
	string(String): true,
	string(Object): true,
	string(List):   true,
	string(Tuple):  true,
	string(Any):    true,
}

// IsBuiltinType checks if a name is a known dtype
func IsBuiltinType(typeName string) bool {
	return BuiltinTypes[typeName]
}

// IsNumeric checks if a dtype holds numbers
func IsNumeric(dt DType) bool {
	switch dt {
	case Int, Float:
		return true
	default:
		return false
	}
}

// IsScalar reports whether values of the dtype have no fields or elements
func IsScalar(dt DType) bool {
	switch dt {
	case Bool, Int, Float, String:
		return true
	default:
		return false
	}
}

func (dt DType) String() string {
	if dt == Unknown {
		return "?"
	}
	return string(dt)
}
