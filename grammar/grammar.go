package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a parsed .dfg source: an optional graph name followed by
// access plans and dataflow functions in any order.
type File struct {
	Pos   lexer.Position
	Graph string  `[ "graph" @Ident ]`
	Decls []*Decl `@@*`
}

type Decl struct {
	Plan *Plan `  @@`
	Func *Func `| @@`
}

// Plan describes how one access path is walked physically.
type Plan struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Ref     string      `"plan" @String "{"`
	Loops   []*PlanLoop `@@*`
	Tail    []string    `[ "tail" @String+ ]`
	Element bool        `[ @"element" ] "}"`
}

// PlanLoop opens one axis. The first loop of a plan reads its collection
// from the input root, later loops walk field keys from the enclosing element.
type PlanLoop struct {
	Pos    lexer.Position
	Axis   string   `"loop" @Ident "from"`
	Source string   `@( "input" | "field" )`
	Keys   []string `@String*`
}

type Func struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Name    string   `"fn" @Ident`
	Outputs []string `[ "->" @Register { "," @Register } ]`
	Body    []*Instr `"{" @@* "}"`
}

type Instr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Result string   `[ @Register "=" ]`
	Op     string   `@Ident`
	Inputs []string `"(" [ @Register { "," @Register } ] ")"`
	Axes   []string `[ "@" "[" [ @Ident { "," @Ident } ] "]" ]`
	Over   []string `[ "over" "[" [ @Ident { "," @Ident } ] "]" ]`
	DType  string   `[ ":" @Ident ]`
	Attrs  []*Attr  `[ "{" [ @@ { "," @@ } ] "}" ]`
}

type Attr struct {
	Pos   lexer.Position
	Key   string `@Ident "="`
	Value *Value `@@`
}

type Value struct {
	Str   *string  `  @String`
	Float *float64 `| @Float`
	Int   *int64   `| @Int`
	Bool  *string  `| @( "true" | "false" )`
	Ident *string  `| @Ident`
	List  []*Value `| "[" [ @@ { "," @@ } ] "]"`
}

// Plans returns the plan declarations in source order
func (f *File) Plans() []*Plan {
	var plans []*Plan
	for _, d := range f.Decls {
		if d.Plan != nil {
			plans = append(plans, d.Plan)
		}
	}
	return plans
}

// Funcs returns the function declarations in source order
func (f *File) Funcs() []*Func {
	var funcs []*Func
	for _, d := range f.Decls {
		if d.Func != nil {
			funcs = append(funcs, d.Func)
		}
	}
	return funcs
}
