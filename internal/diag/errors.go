package diag

import (
	"fmt"
	"strings"

	"axc/internal/dataflow"
)

// Builder provides a fluent interface for creating compiler errors
type Builder struct {
	err CompilerError
}

// NewError creates a new error builder
func NewError(code, message string, pos dataflow.Position) *Builder {
	return &Builder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string, pos dataflow.Position) *Builder {
	b := NewError(code, message, pos)
	b.err.Level = Warning
	return b
}

func (b *Builder) WithLength(length int) *Builder {
	b.err.Length = length
	return b
}

func (b *Builder) InFunction(name string) *Builder {
	b.err.Function = name
	return b
}

func (b *Builder) WithSuggestion(message string) *Builder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithReplacement adds a suggestion with replacement text
func (b *Builder) WithReplacement(message, replacement string) *Builder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return b
}

func (b *Builder) WithNote(note string) *Builder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *Builder) WithHelp(help string) *Builder {
	b.err.HelpText = help
	return b
}

func (b *Builder) Build() CompilerError {
	return b.err
}

// SyntaxError reports source the grammar rejects
func SyntaxError(message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorSyntax, message, pos).Build()
}

// UnknownOpcode reports an opcode name outside the closed opcode set
func UnknownOpcode(name string, pos dataflow.Position, known []string) CompilerError {
	builder := NewError(ErrorUnknownOpcode, fmt.Sprintf("unknown opcode '%s'", name), pos).
		WithLength(len(name))

	if similar := findSimilarNames(name, known); len(similar) > 0 {
		builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	} else {
		builder.WithNote("opcodes: " + strings.Join(known, ", "))
	}
	return builder.Build()
}

// InvalidInstruction reports a dataflow graph rule violation
func InvalidInstruction(function, message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorInvalidInstruction, message, pos).InFunction(function).Build()
}

func MalformedInstruction(message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorMalformedInstruction, message, pos).Build()
}

func InvalidPlan(message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorInvalidPlan, message, pos).
		WithHelp("a plan is: plan \"ref\" { loop <axis> from input \"key\" ... [tail \"key\" ...] [element] }").
		Build()
}

func DuplicateFunction(name string, pos dataflow.Position) CompilerError {
	return NewError(ErrorDuplicateFunction, fmt.Sprintf("function '%s' is declared twice", name), pos).
		InFunction(name).
		WithSuggestion("rename one of the declarations").
		Build()
}

// UnresolvedAxis reports an axis that no reachable plan entry opens
func UnresolvedAxis(function, axis string, tried []string, message string, pos dataflow.Position) CompilerError {
	builder := NewError(ErrorUnresolvedAxis, message, pos).InFunction(function)
	if len(tried) > 0 {
		builder.WithNote("plans tried: " + strings.Join(tried, ", "))
	}
	return builder.
		WithHelp(fmt.Sprintf("reference a plan whose loops open axis '%s' with a plan attribute", axis)).
		Build()
}

func NotImplemented(function, opcode string, pos dataflow.Position) CompilerError {
	return NewError(ErrorNotImplemented, fmt.Sprintf("opcode '%s' has no loop lowering", opcode), pos).
		InFunction(function).
		WithLength(len(opcode)).
		Build()
}

func MalformedLiteral(function, message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorMalformedLiteral, message, pos).InFunction(function).Build()
}

// Structural reports a broken lowering invariant. These point at compiler
// bugs or at graphs that read values outside the loop that produced them.
func Structural(function, message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorStructural, message, pos).
		InFunction(function).
		WithNote("a value produced inside a loop can only be read in that loop or, for reductions, right after it").
		Build()
}

func Lowering(function, message string, pos dataflow.Position) CompilerError {
	return NewError(ErrorLowering, message, pos).InFunction(function).Build()
}

// SkippedFunction warns that a function was not lowered
func SkippedFunction(name string, pos dataflow.Position) CompilerError {
	return NewWarning(WarningSkippedFunction, fmt.Sprintf("function '%s' was not lowered", name), pos).
		InFunction(name).
		Build()
}

// findSimilarNames finds names similar to the target using edit distance
func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	maxDistance := max(2, len(target)/3)
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= maxDistance {
			similar = append(similar, candidate)
		}
	}
	return similar
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
