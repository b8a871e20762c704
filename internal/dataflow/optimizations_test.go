package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axc/internal/builtins"
)

func TestConstantFolding(t *testing.T) {
	g := mustParse(t, `fn f -> %d {
    %a = constant() @[] : i64 {value = 6}
    %b = constant() @[] : i64 {value = 7}
    %c = map(%a, %b) @[] : i64 {fn = "mul"}
    %d = map(%c, %a) @[] {fn = "core.div"}
}`)
	fn := g.Functions[0]

	cf := &ConstantFolding{}
	require.True(t, cf.Apply(fn))

	assert.Equal(t, OpConstant, fn.Body[2].Op)
	assert.Equal(t, int64(42), fn.Body[2].Attrs["value"])
	assert.Equal(t, builtins.Int, fn.Body[2].DType)

	assert.Equal(t, OpConstant, fn.Body[3].Op)
	assert.Equal(t, 7.0, fn.Body[3].Attrs["value"])
	assert.Equal(t, builtins.Float, fn.Body[3].DType)
}

func TestConstantFoldingLeavesUnfoldable(t *testing.T) {
	g := mustParse(t, `fn f -> %s {
    %a = constant() @[] : i64 {value = 1}
    %z = constant() @[] : i64 {value = 0}
    %q = map(%a, %z) @[] : i64 {fn = "mod"}
    %x = load_input() @[rows] : i64 {path = "rows"}
    %y = map(%x, %a) @[rows] : i64 {fn = "add"}
    %s = reduce(%y) @[] over [rows] : i64 {fn = "sum"}
}`)
	fn := g.Functions[0]
	assert.False(t, (&ConstantFolding{}).Apply(fn))
	assert.Equal(t, OpMap, fn.Body[2].Op)
}

func TestComputeKernel(t *testing.T) {
	cf := &ConstantFolding{}
	tests := []struct {
		kernel   string
		args     []any
		expected any
	}{
		{"add", []any{int64(2), int64(3)}, int64(5)},
		{"sub", []any{2.5, int64(1)}, 1.5},
		{"lt", []any{int64(1), 2.0}, true},
		{"and", []any{true, false}, false},
		{"eq", []any{"a", "a"}, true},
		{"neg", []any{int64(4)}, int64(-4)},
		{"abs", []any{-2.5}, 2.5},
		{"not", []any{false}, true},
		{"div", []any{int64(1), int64(0)}, nil},
		{"mul", []any{"a", int64(2)}, nil},
		{"sum", []any{int64(1), int64(2)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.kernel, func(t *testing.T) {
			assert.Equal(t, tt.expected, cf.computeKernel(tt.kernel, tt.args))
		})
	}
}

func TestCommonSubexpressionElimination(t *testing.T) {
	g := mustParse(t, `fn f -> %s {
    %0 = load_input() @[] : list {path = "items", plan = "items"}
    %1 = load_field(%0) @[items] : object {key = "item", plan = "items"}
    %2 = load_field(%1) @[items] : f64 {key = "price", plan = "items.price"}
    %3 = load_field(%1) @[items] : f64 {key = "price", plan = "items.price"}
    %4 = map(%2, %3) @[items] : f64 {fn = "mul"}
    %5 = import_call(%4) @[items] : f64 {fn = "audit"}
    %6 = import_call(%4) @[items] : f64 {fn = "audit"}
    %s = reduce(%4) @[] over [items] : f64 {fn = "sum"}
}`)
	fn := g.Functions[0]

	cse := &CommonSubexpressionElimination{}
	require.True(t, cse.Apply(fn))
	require.Len(t, fn.Body, 7)
	assert.Equal(t, []Reg{"%2", "%2"}, fn.Body[3].Inputs)
	assert.Equal(t, OpImportCall, fn.Body[4].Op)
	assert.Equal(t, OpImportCall, fn.Body[5].Op)
	assert.NoError(t, Validate(fn))
}

func TestCSERenamesOutputs(t *testing.T) {
	g := mustParse(t, `fn f -> %b {
    %a = decl_ref() @[] : f64 {name = "rate"}
    %b = decl_ref() @[] : f64 {name = "rate"}
}`)
	fn := g.Functions[0]
	require.True(t, (&CommonSubexpressionElimination{}).Apply(fn))
	assert.Equal(t, []Reg{"%a"}, fn.Outputs)
	assert.Len(t, fn.Body, 1)
}

func TestDeadCodeElimination(t *testing.T) {
	g := mustParse(t, `fn f -> %s {
    %0 = load_input() @[] : list {path = "items"}
    %1 = load_field(%0) @[items] : f64 {key = "price"}
    %2 = map(%1) @[items] : f64 {fn = "neg"}
    %3 = map(%2) @[items] : f64 {fn = "abs"}
    import_call(%1) @[items] {fn = "log"}
    %s = reduce(%1) @[] over [items] : f64 {fn = "sum"}
}`)
	fn := g.Functions[0]

	dce := &DeadCodeElimination{}
	require.True(t, dce.Apply(fn))

	var ops []Opcode
	for _, inst := range fn.Body {
		ops = append(ops, inst.Op)
	}
	assert.Equal(t, []Opcode{OpLoadInput, OpLoadField, OpImportCall, OpReduce}, ops)
	assert.False(t, dce.Apply(fn))
}

func TestPipeline(t *testing.T) {
	g := mustParse(t, `fn f -> %s {
    %0 = load_input() @[] : list {path = "items", plan = "items"}
    %1 = load_input() @[] : list {path = "items", plan = "items"}
    %2 = load_field(%1) @[items] : f64 {key = "price", plan = "items.price"}
    %k = constant() @[] : f64 {value = 2.0}
    %h = constant() @[] : f64 {value = 0.5}
    %m = map(%k, %h) @[] : f64 {fn = "mul"}
    %s = reduce(%2) @[] over [items] : f64 {fn = "sum"}
}`)
	fn := g.Functions[0]
	assert.True(t, NewPipeline().Run(fn))

	require.Len(t, fn.Body, 3)
	assert.Equal(t, []Reg{"%0"}, fn.Body[1].Inputs)
	assert.NoError(t, Validate(fn))
}
