package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"axc/grammar"
	"axc/internal/dataflow"
)

func TestIndexFromInvoice(t *testing.T) {
	file, err := grammar.ParseFile("../../examples/invoice.dfg")
	require.NoError(t, err)

	idx, err := IndexFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, []string{"items", "items.price", "items.qty", "orders", "orders.lines.amount"}, idx.Refs())

	amount := idx.Lookup("orders.lines.amount")
	require.NotNil(t, amount)
	expected := &Entry{
		Ref:            "orders.lines.amount",
		AxisToLoop:     map[dataflow.Axis]int{"orders": 0, "lines": 1},
		HeadPathByLoop: map[int][]string{0: {"orders"}},
		BetweenLoops:   map[LoopPair][]string{{Outer: 0, Inner: 1}: {"lines"}},
		LoopAxes:       []dataflow.Axis{"orders", "lines"},
		LastLoop:       1,
		TailKeys:       []string{"amount"},
	}
	if diff := cmp.Diff(expected, amount); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}

	li, ok := amount.Opens("lines")
	assert.True(t, ok)
	assert.Equal(t, 1, li)
	_, ok = amount.Opens("items")
	assert.False(t, ok)
	assert.Equal(t, dataflow.Axis("lines"), amount.LastAxis())
	assert.Equal(t, []string{"lines"}, amount.Between(1))

	items := idx.Lookup("items")
	require.NotNil(t, items)
	assert.True(t, items.ElementTerminal)
	assert.Empty(t, items.TailKeys)

	assert.Nil(t, idx.Lookup("missing"))
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name     string
		entry    *Entry
		expected string
	}{
		{
			name:  "valid nested",
			entry: NewEntry("a", []dataflow.Axis{"x", "y"}, []string{"xs"}, [][]string{{"ys"}}, []string{"v"}, false),
		},
		{
			name:  "loop free",
			entry: NewEntry("k", nil, nil, nil, []string{"rate"}, false),
		},
		{
			name:     "element with tail",
			entry:    NewEntry("b", []dataflow.Axis{"x"}, []string{"xs"}, nil, []string{"v"}, true),
			expected: "element terminal path has tail keys",
		},
		{
			name:     "duplicate axis",
			entry:    NewEntry("c", []dataflow.Axis{"x", "x"}, []string{"xs"}, [][]string{nil}, nil, false),
			expected: "2 loops",
		},
		{
			name:     "missing head",
			entry:    NewEntry("d", []dataflow.Axis{"x"}, nil, nil, nil, false),
			expected: "first loop has no head path",
		},
		{
			name: "non monotonic",
			entry: func() *Entry {
				e := NewEntry("e", []dataflow.Axis{"x", "y"}, []string{"xs"}, [][]string{{"ys"}}, nil, false)
				e.AxisToLoop["x"], e.AxisToLoop["y"] = 1, 0
				return e
			}(),
			expected: "axis x is not mapped to loop 0",
		},
		{
			name: "stray between keys",
			entry: func() *Entry {
				e := NewEntry("f", []dataflow.Axis{"x"}, []string{"xs"}, nil, nil, false)
				e.BetweenLoops[LoopPair{Outer: 0, Inner: 2}] = []string{"zs"}
				return e
			}(),
			expected: "keys between loops 0 and 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.expected == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestNewMapIndexRejectsDuplicates(t *testing.T) {
	a := NewEntry("a", []dataflow.Axis{"x"}, []string{"xs"}, nil, nil, true)
	bad := NewEntry("b", []dataflow.Axis{"x"}, nil, nil, nil, false)

	_, err := NewMapIndex(a, a, bad)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), `plan "a" declared twice`)
	assert.Contains(t, errs[1].Error(), `plan "b"`)
}

func TestFromGrammarLoopSources(t *testing.T) {
	file, err := grammar.ParseString("p.dfg", `
plan "bad" {
    loop x from field "xs"
}
plan "worse" {
    loop x from input "xs"
    loop y from input "ys"
}`)
	require.NoError(t, err)

	_, err = IndexFromFile(file)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "the first loop must read from input")
	assert.Contains(t, errs[1].Error(), "loop 1 must read from a field")
}
