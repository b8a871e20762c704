package diag

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"axc/internal/dataflow"
)

func init() {
	color.NoColor = true
}

func TestErrorReporter(t *testing.T) {
	source := `graph g
fn f -> %1 {
    %0 = load_fied() @[] : f64 {key = "x"}
    %1 = map(%0) @[] : f64 {fn = "neg"}
}`

	reporter := NewErrorReporter("test.dfg", source)

	err := UnknownOpcode("load_fied", dataflow.Position{Line: 3, Column: 10}, []string{"load_input", "load_field", "map"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorUnknownOpcode+"]")
	assert.Contains(t, formatted, "unknown opcode 'load_fied'")
	assert.Contains(t, formatted, "test.dfg:3:10")
	assert.Contains(t, formatted, "did you mean 'load_field'?")
	assert.Contains(t, formatted, `%0 = load_fied() @[] : f64 {key = "x"}`)
	assert.Contains(t, formatted, strings.Repeat(" ", 9)+"^^^^^^^^^")
}

func TestUnknownOpcodeWithoutSuggestion(t *testing.T) {
	err := UnknownOpcode("frobnicate", dataflow.Position{Line: 1, Column: 1}, []string{"map", "reduce"})
	assert.Empty(t, err.Suggestions)
	assert.Len(t, err.Notes, 1)
	assert.Contains(t, err.Notes[0], "opcodes: map, reduce")
}

func TestUnresolvedAxis(t *testing.T) {
	pos := dataflow.Position{Line: 4, Column: 5}
	err := UnresolvedAxis("total", "rows", []string{"items.price"}, "cannot open axis rows", pos)

	assert.Equal(t, ErrorUnresolvedAxis, err.Code)
	assert.Equal(t, "total", err.Function)
	assert.Equal(t, []string{"plans tried: items.price"}, err.Notes)
	assert.Contains(t, err.HelpText, "'rows'")

	formatted := NewErrorReporter("a.dfg", "").FormatError(err)
	assert.Contains(t, formatted, "a.dfg:4:5 (fn total)")
	assert.Contains(t, formatted, "note: plans tried: items.price")
}

func TestSkippedFunctionIsWarning(t *testing.T) {
	err := SkippedFunction("total", dataflow.Position{Line: 2, Column: 1})
	assert.Equal(t, Warning, err.Level)
	assert.True(t, IsWarning(err.Code))

	formatted := NewErrorReporter("a.dfg", "").FormatError(err)
	assert.True(t, strings.HasPrefix(formatted, "warning[W0001]"))
}

func TestCompilerErrorString(t *testing.T) {
	err := NotImplemented("f", "stencil", dataflow.Position{Filename: "a.dfg", Line: 7, Column: 3})
	assert.Equal(t, "a.dfg:7:3: error[E0302]: opcode 'stencil' has no loop lowering", err.Error())
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		code     string
		category string
	}{
		{ErrorSyntax, "Parser"},
		{ErrorUnknownOpcode, "Dataflow"},
		{ErrorInvalidPlan, "Dataflow"},
		{ErrorUnresolvedAxis, "Lowering"},
		{ErrorLowering, "Lowering"},
		{WarningSkippedFunction, "Warning"},
		{"E9999", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))
			if tt.category != "Unknown" {
				assert.NotEqual(t, "Unknown error code", GetErrorDescription(tt.code))
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("map", "map"))
	assert.Equal(t, 1, levenshteinDistance("load_fied", "load_field"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}
