package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var DataflowLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},

		// Registers (%0, %price, %t.1)
		{"Register", `%[A-Za-z0-9_.]+`, nil},

		// Numbers, floats first
		{"Float", `[-+]?[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`, nil},
		{"Int", `[-+]?[0-9]+`, nil},

		{"String", `"(\\.|[^"\\])*"`, nil},

		{"Arrow", `->`, nil},

		// Keywords, opcodes, axes and dtypes
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Punctuation", `[{}()\[\],=:@]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
