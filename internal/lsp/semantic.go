package lsp

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"axc/grammar"
)

// SemanticTokenTypes is the token legend advertised to clients; TokenType
// values index into it
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"string",
	"number",
	"operator",
	"comment",
}

// SemanticTokenModifiers is the modifier legend; TokenModifiers is a bitmask over it
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
}

const modDeclaration = 1 << 0

var keywords = map[string]bool{
	"graph":   true,
	"plan":    true,
	"fn":      true,
	"loop":    true,
	"from":    true,
	"input":   true,
	"field":   true,
	"tail":    true,
	"element": true,
	"over":    true,
	"true":    true,
	"false":   true,
}

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask
}

func tokenType(name string) int {
	return slices.Index(SemanticTokenTypes, name)
}

// collectSemanticTokens lexes the source with the dataflow lexer and
// classifies each token from its neighbours. Lexing stops at the first
// invalid character; the tokens before it are still returned.
func collectSemanticTokens(filename, src string) []SemanticToken {
	lex, err := grammar.DataflowLexer.Lex(filename, strings.NewReader(src))
	if err != nil {
		return nil
	}
	symbols := lexer.SymbolsByRune(grammar.DataflowLexer)

	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			log.Debugf("semantic tokens of %s stop: %s", filename, err)
			break
		}
		if tok.EOF() {
			break
		}
		if symbols[tok.Type] == "Whitespace" {
			continue
		}
		toks = append(toks, tok)
	}

	var (
		tokens []SemanticToken
		inAxes bool
	)
	for i, tok := range toks {
		var prev, next string
		if i > 0 {
			prev = toks[i-1].Value
		}
		if i+1 < len(toks) {
			next = toks[i+1].Value
		}

		kind, mods := "", 0
		switch symbols[tok.Type] {
		case "Comment":
			kind = "comment"
		case "Register":
			kind = "variable"
			if next == "=" {
				mods = modDeclaration
			}
		case "Float", "Int":
			kind = "number"
		case "String":
			kind = "string"
		case "Arrow":
			kind = "operator"
		case "Punctuation":
			switch {
			case tok.Value == "[" && (prev == "@" || prev == "over"):
				inAxes = true
			case tok.Value == "]":
				inAxes = false
			}
		case "Ident":
			kind, mods = classifyIdent(tok.Value, prev, next, inAxes)
		}
		if kind == "" {
			continue
		}
		tokens = append(tokens, SemanticToken{
			Line:           uint32(tok.Pos.Line - 1),
			StartChar:      uint32(tok.Pos.Column - 1),
			Length:         uint32(len(tok.Value)),
			TokenType:      tokenType(kind),
			TokenModifiers: mods,
		})
	}
	return tokens
}

func classifyIdent(value, prev, next string, inAxes bool) (string, int) {
	switch {
	case inAxes:
		return "parameter", 0
	case value == "true" || value == "false":
		return "keyword", 0
	case prev == "graph":
		return "namespace", modDeclaration
	case prev == "fn":
		return "function", modDeclaration
	case prev == "loop":
		return "parameter", modDeclaration
	case prev == ":":
		return "type", 0
	case next == "(":
		return "function", 0
	case next == "=":
		return "property", 0
	case prev == "=":
		return "parameter", 0
	case keywords[value]:
		return "keyword", 0
	default:
		return "", 0
	}
}

// encodeSemanticTokens converts tokens to the LSP wire format (delta line,
// delta start, length, type, modifiers)
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	var (
		data                []uint32
		prevLine, prevStart uint32
	)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		deltaStart := token.StartChar
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))
		prevLine = token.Line
		prevStart = token.StartChar
	}
	return data
}
