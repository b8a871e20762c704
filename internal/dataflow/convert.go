package dataflow

import (
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"axc/grammar"
	"axc/internal/builtins"
)

// ConversionError is an instruction that could not be read into the graph
type ConversionError struct {
	Pos    Position
	Msg    string
	Opcode string // the unknown opcode, when that is the failure
}

func (e *ConversionError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// FromGrammar builds a dataflow graph from a parsed .dfg file. Every
// unknown opcode in the file is reported, not only the first.
func FromGrammar(file *grammar.File) (*Graph, error) {
	g := &Graph{Name: file.Graph}
	var errs error
	for _, f := range file.Funcs() {
		fn, err := funcFromGrammar(f)
		errs = multierr.Append(errs, err)
		if fn != nil {
			g.Functions = append(g.Functions, fn)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return g, nil
}

func funcFromGrammar(f *grammar.Func) (*Function, error) {
	fn := &Function{Name: f.Name, Pos: PositionOf(f.Pos)}
	var errs error
	for _, in := range f.Body {
		inst, err := instrFromGrammar(in)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fn.Body = append(fn.Body, inst)
	}
	for _, out := range f.Outputs {
		fn.Outputs = append(fn.Outputs, Reg(out))
	}
	if len(fn.Outputs) == 0 {
		// the last result is the declaration value
		for i := len(fn.Body) - 1; i >= 0; i-- {
			if fn.Body[i].Result != "" {
				fn.Outputs = []Reg{fn.Body[i].Result}
				break
			}
		}
	}
	return fn, errs
}

func instrFromGrammar(in *grammar.Instr) (*Instruction, error) {
	op, ok := LookupOpcode(in.Op)
	if !ok {
		return nil, &ConversionError{Pos: PositionOf(in.Pos), Msg: "unknown opcode " + strconv.Quote(in.Op), Opcode: in.Op}
	}
	inst := &Instruction{
		Op:     op,
		Result: Reg(in.Result),
		DType:  builtins.DType(in.DType),
		Pos:    PositionOf(in.Pos),
	}
	for _, r := range in.Inputs {
		inst.Inputs = append(inst.Inputs, Reg(r))
	}
	for _, a := range in.Axes {
		inst.Axes = append(inst.Axes, Axis(a))
	}
	for _, a := range in.Over {
		inst.Over = append(inst.Over, Axis(a))
	}
	if len(in.Attrs) > 0 {
		inst.Attrs = make(Attrs, len(in.Attrs))
		for _, a := range in.Attrs {
			if _, dup := inst.Attrs[a.Key]; dup {
				return nil, &ConversionError{Pos: PositionOf(a.Pos), Msg: "duplicate attribute " + strconv.Quote(a.Key)}
			}
			inst.Attrs[a.Key] = valueFromGrammar(a.Value)
		}
	}
	return inst, nil
}

func valueFromGrammar(v *grammar.Value) any {
	switch {
	case v == nil:
		return []any{}
	case v.Str != nil:
		return *v.Str
	case v.Float != nil:
		return *v.Float
	case v.Int != nil:
		return *v.Int
	case v.Bool != nil:
		return *v.Bool == "true"
	case v.Ident != nil:
		return *v.Ident
	default:
		list := make([]any, 0, len(v.List))
		for _, e := range v.List {
			list = append(list, valueFromGrammar(e))
		}
		return list
	}
}

// PositionOf converts a lexer position
func PositionOf(p lexer.Position) Position {
	return Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

// ToGrammar converts a function back into its source form
func ToGrammar(fn *Function) *grammar.Func {
	f := &grammar.Func{Name: fn.Name}
	for _, out := range fn.Outputs {
		f.Outputs = append(f.Outputs, string(out))
	}
	for _, inst := range fn.Body {
		f.Body = append(f.Body, instrToGrammar(inst))
	}
	return f
}

// GraphToGrammar converts the functions of a graph, keeping the given plans
func GraphToGrammar(g *Graph, plans []*grammar.Plan) *grammar.File {
	file := &grammar.File{Graph: g.Name}
	for _, p := range plans {
		file.Decls = append(file.Decls, &grammar.Decl{Plan: p})
	}
	for _, fn := range g.Functions {
		file.Decls = append(file.Decls, &grammar.Decl{Func: ToGrammar(fn)})
	}
	return file
}

func instrToGrammar(inst *Instruction) *grammar.Instr {
	in := &grammar.Instr{
		Result: string(inst.Result),
		Op:     inst.Op.String(),
		DType:  string(inst.DType),
	}
	for _, r := range inst.Inputs {
		in.Inputs = append(in.Inputs, string(r))
	}
	for _, a := range inst.Axes {
		in.Axes = append(in.Axes, string(a))
	}
	for _, a := range inst.Over {
		in.Over = append(in.Over, string(a))
	}
	for _, k := range inst.Attrs.Keys() {
		in.Attrs = append(in.Attrs, &grammar.Attr{Key: k, Value: valueToGrammar(inst.Attrs[k])})
	}
	return in
}

func valueToGrammar(v any) *grammar.Value {
	switch v := v.(type) {
	case string:
		return &grammar.Value{Str: &v}
	case int64:
		return &grammar.Value{Int: &v}
	case float64:
		return &grammar.Value{Float: &v}
	case bool:
		s := strconv.FormatBool(v)
		return &grammar.Value{Bool: &s}
	case []any:
		out := &grammar.Value{}
		for _, e := range v {
			out.List = append(out.List, valueToGrammar(e))
		}
		return out
	default:
		panic(errors.Errorf("unsupported attribute value %T", v))
	}
}
