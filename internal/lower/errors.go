package lower

import (
	"fmt"
	"strings"

	"axc/internal/dataflow"
)

// Error ties a lowering failure to the declaration and instruction that
// caused it
type Error struct {
	Func string
	Pos  dataflow.Position
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: in %s: %v", e.Pos, e.Func, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StructuralError is a violated invariant of the lowering itself, such as
// popping the root frame or an unmatched loop_end.
type StructuralError struct {
	Msg string
	Err error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return "structural violation: " + e.Msg + ": " + e.Err.Error()
	}
	return "structural violation: " + e.Msg
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structuralf(format string, args ...any) *StructuralError {
	return &StructuralError{Msg: fmt.Sprintf(format, args...)}
}

// UnresolvedAxisError is an axis that must be opened but that no plan
// entry reachable from the instruction can open
type UnresolvedAxisError struct {
	Axis   dataflow.Axis
	Op     dataflow.Opcode
	Tried  []string
	Reason string
}

func (e *UnresolvedAxisError) Error() string {
	msg := fmt.Sprintf("cannot open axis %s for %s", e.Axis, e.Op)
	if e.Reason != "" {
		return msg + ": " + e.Reason
	}
	if len(e.Tried) == 0 {
		return msg + ": no plan reference reaches it"
	}
	return msg + ": none of plans " + strings.Join(e.Tried, ", ") + " opens it"
}

// NotImplementedError is a dataflow opcode without a loop form
type NotImplementedError struct {
	Op dataflow.Opcode
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("no loop lowering for opcode %s", e.Op)
}

// MalformedLiteralError is an attribute or operand that must be a literal
// of a given kind and is not
type MalformedLiteralError struct {
	Op   dataflow.Opcode
	Attr string
	Msg  string
}

func (e *MalformedLiteralError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Attr, e.Msg)
}
