package diag

// Error codes for the axc compiler. The same codes appear in CLI output and
// in language server diagnostics.
//
// Error code ranges:
// E0100-E0199: Parser errors
// E0200-E0299: Plan and dataflow errors
// E0300-E0399: Lowering errors
// W0001-W0099: Warnings

const (
	// Parser errors (E0100-E0199)

	// E0100: Source does not match the .dfg grammar
	ErrorSyntax = "E0100"

	// Plan and dataflow errors (E0200-E0299)

	// E0200: Instruction names an opcode that does not exist
	ErrorUnknownOpcode = "E0200"

	// E0201: Instruction is read but violates a graph rule
	ErrorInvalidInstruction = "E0201"

	// E0202: Plan entry is malformed or declared twice
	ErrorInvalidPlan = "E0202"

	// E0203: Two functions share a name
	ErrorDuplicateFunction = "E0203"

	// E0204: Duplicate attribute or other unreadable instruction
	ErrorMalformedInstruction = "E0204"

	// Lowering errors (E0300-E0399)

	// E0300: Lowering invariant violated
	ErrorStructural = "E0300"

	// E0301: No plan opens an axis the instruction needs
	ErrorUnresolvedAxis = "E0301"

	// E0302: Opcode has no loop form
	ErrorNotImplemented = "E0302"

	// E0303: Attribute must be a literal of a given kind
	ErrorMalformedLiteral = "E0303"

	// E0399: Lowering failed for another reason
	ErrorLowering = "E0399"

	// Warnings

	// W0001: Function is never lowered because an earlier stage failed
	WarningSkippedFunction = "W0001"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Source does not match the dataflow grammar"
	case ErrorUnknownOpcode:
		return "Instruction names an unknown opcode"
	case ErrorInvalidInstruction:
		return "Instruction violates a dataflow graph rule"
	case ErrorInvalidPlan:
		return "Plan entry is malformed"
	case ErrorDuplicateFunction:
		return "Function is declared twice"
	case ErrorMalformedInstruction:
		return "Instruction cannot be read"
	case ErrorStructural:
		return "Lowering reached an inconsistent loop structure"
	case ErrorUnresolvedAxis:
		return "No plan entry opens a required axis"
	case ErrorNotImplemented:
		return "Opcode has no loop lowering"
	case ErrorMalformedLiteral:
		return "Attribute is not a literal of the required kind"
	case ErrorLowering:
		return "Lowering failed"
	case WarningSkippedFunction:
		return "Function was not lowered"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code != "" && code[0] == 'W'
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case IsWarning(code):
		return "Warning"
	case code >= "E0100" && code < "E0200":
		return "Parser"
	case code >= "E0200" && code < "E0300":
		return "Dataflow"
	case code >= "E0300" && code < "E0400":
		return "Lowering"
	default:
		return "Unknown"
	}
}
