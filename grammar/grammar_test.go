// SPDX-License-Identifier: Apache-2.0
package grammar_test

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axc/grammar"
)

func TestInvoiceExample(t *testing.T) {
	file, err := grammar.ParseFile(`../examples/invoice.dfg`)
	require.NoError(t, err)

	assert.Equal(t, "invoice", file.Graph)
	assert.Len(t, file.Plans(), 5)
	assert.Len(t, file.Funcs(), 3)

	items := file.Plans()[0]
	assert.Equal(t, "items", items.Ref)
	assert.True(t, items.Element)
	require.Len(t, items.Loops, 1)
	assert.Equal(t, "items", items.Loops[0].Axis)
	assert.Equal(t, "input", items.Loops[0].Source)
	assert.Equal(t, []string{"items"}, items.Loops[0].Keys)

	amount := file.Plans()[4]
	assert.Equal(t, "orders.lines.amount", amount.Ref)
	require.Len(t, amount.Loops, 2)
	assert.Equal(t, "field", amount.Loops[1].Source)
	assert.Equal(t, []string{"lines"}, amount.Loops[1].Keys)
	assert.Equal(t, []string{"amount"}, amount.Tail)
	assert.False(t, amount.Element)

	total := file.Funcs()[0]
	assert.Equal(t, "total", total.Name)
	assert.Equal(t, []string{"%5"}, total.Outputs)
	require.Len(t, total.Body, 6)

	checkInstr(t, total.Body[0], "%0", "load_input", nil, nil, nil, "list")
	checkInstr(t, total.Body[4], "%4", "map", []string{"%2", "%3"}, []string{"items"}, nil, "f64")
	checkInstr(t, total.Body[5], "%5", "reduce", []string{"%4"}, nil, []string{"items"}, "f64")

	fn := total.Body[5].Attrs[0]
	assert.Equal(t, "fn", fn.Key)
	require.NotNil(t, fn.Value.Str)
	assert.Equal(t, "sum", *fn.Value.Str)
}

func checkInstr(t *testing.T, inst *grammar.Instr, result, op string, inputs, axes, over []string, dtype string) {
	t.Helper()
	assert.Equal(t, result, inst.Result)
	assert.Equal(t, op, inst.Op)
	assert.Equal(t, inputs, inst.Inputs)
	assert.Equal(t, axes, inst.Axes)
	assert.Equal(t, over, inst.Over)
	assert.Equal(t, dtype, inst.DType)
}

func TestAttributeValues(t *testing.T) {
	src := `fn f {
    shift(%0) @[x] {offset = -2, scale = 0.5, keep = true, axis = x, keys = ["a", "b"]}
}`
	file, err := grammar.ParseString("attrs.dfg", src)
	require.NoError(t, err)

	inst := file.Funcs()[0].Body[0]
	assert.Empty(t, inst.Result)
	require.Len(t, inst.Attrs, 5)

	require.NotNil(t, inst.Attrs[0].Value.Int)
	assert.Equal(t, int64(-2), *inst.Attrs[0].Value.Int)
	require.NotNil(t, inst.Attrs[1].Value.Float)
	assert.Equal(t, 0.5, *inst.Attrs[1].Value.Float)
	require.NotNil(t, inst.Attrs[2].Value.Bool)
	assert.Equal(t, "true", *inst.Attrs[2].Value.Bool)
	require.NotNil(t, inst.Attrs[3].Value.Ident)
	assert.Equal(t, "x", *inst.Attrs[3].Value.Ident)
	assert.Len(t, inst.Attrs[4].Value.List, 2)
}

func TestPrinterRoundTrip(t *testing.T) {
	file, err := grammar.ParseFile(`../examples/invoice.dfg`)
	require.NoError(t, err)

	printed := file.String()
	again, err := grammar.ParseString("printed.dfg", printed)
	require.NoError(t, err)
	assert.Equal(t, printed, again.String())
	assert.Contains(t, printed, `%5 = reduce(%4) @[] over [items] : f64 {fn = "sum"}`)
}

func TestFormatParseError(t *testing.T) {
	color.NoColor = true
	src := "fn broken {\n    %0 = map(%1 @[x]\n}\n"
	_, err := grammar.ParseString("broken.dfg", src)
	require.Error(t, err)

	msg := grammar.FormatParseError(src, err)
	assert.Contains(t, msg, "Syntax error in broken.dfg at line 2")
	assert.True(t, strings.Contains(msg, "^"))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", grammar.FormatFloat(1))
	assert.Equal(t, "-0.25", grammar.FormatFloat(-0.25))
}
