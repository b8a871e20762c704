package lsp_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"axc/internal/driver"
	"axc/internal/lsp"
)

func exampleURI(t *testing.T) string {
	t.Helper()
	absPath, err := filepath.Abs(filepath.Join("../../examples", "invoice.dfg"))
	require.NoError(t, err, "Failed to get absolute path")
	return "file://" + filepath.ToSlash(absPath)
}

// recorder captures published diagnostics
type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				r.published = append(r.published, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
}

func (r *recorder) last() *protocol.PublishDiagnosticsParams {
	if len(r.published) == 0 {
		return nil
	}
	return r.published[len(r.published)-1]
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler(driver.Options{})

	ctx := &glsp.Context{}
	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: exampleURI(t)},
	}

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, params)
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "Returned tokens should not be nil")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "Failed to decode semantic tokens")
	require.Greater(t, len(decoded), 13)

	assertToken(t, &decoded[0], 1, 1, 51, "comment", nil)
	assertToken(t, &decoded[1], 2, 1, 52, "comment", nil)
	assertToken(t, &decoded[2], 3, 1, 74, "comment", nil)
	assertToken(t, &decoded[3], 5, 1, 5, "keyword", nil)
	assertToken(t, &decoded[4], 5, 7, 7, "namespace", []string{"declaration"})
	assertToken(t, &decoded[5], 7, 1, 4, "keyword", nil)
	assertToken(t, &decoded[6], 7, 6, 7, "string", nil)
	assertToken(t, &decoded[7], 8, 5, 4, "keyword", nil)
	assertToken(t, &decoded[8], 8, 10, 5, "parameter", []string{"declaration"})
	assertToken(t, &decoded[9], 8, 16, 4, "keyword", nil)
	assertToken(t, &decoded[10], 8, 21, 5, "keyword", nil)
	assertToken(t, &decoded[11], 8, 27, 7, "string", nil)
	assertToken(t, &decoded[12], 9, 5, 7, "keyword", nil)

	fnLine := onLine(decoded, 34)
	require.Len(t, fnLine, 4)
	assertToken(t, &fnLine[0], 34, 1, 2, "keyword", nil)
	assertToken(t, &fnLine[1], 34, 4, 5, "function", []string{"declaration"})
	assertToken(t, &fnLine[2], 34, 10, 2, "operator", nil)
	assertToken(t, &fnLine[3], 34, 13, 2, "variable", nil)

	// %0 = load_input() @[] : list {path = "items", plan = "items"}
	body := onLine(decoded, 35)
	require.Len(t, body, 7)
	assertToken(t, &body[0], 35, 5, 2, "variable", []string{"declaration"})
	assertToken(t, &body[1], 35, 10, 10, "function", nil)
	assertToken(t, &body[2], 35, 29, 4, "type", nil)
	assertToken(t, &body[3], 35, 35, 4, "property", nil)
	assertToken(t, &body[4], 35, 42, 7, "string", nil)
	assertToken(t, &body[5], 35, 51, 4, "property", nil)
	assertToken(t, &body[6], 35, 58, 7, "string", nil)

	// %5 = reduce(%4) @[] over [items] : f64 {fn = "sum"}
	reduce := onLine(decoded, 40)
	types := make([]string, len(reduce))
	for i, tok := range reduce {
		types[i] = tok.Type
	}
	assert.Equal(t, []string{
		"variable", "function", "variable", "keyword", "parameter", "type", "property", "string",
	}, types)
}

func TestHoverShowsLoopProgram(t *testing.T) {
	handler := lsp.NewHandler(driver.Options{})
	rec := &recorder{}
	uri := exampleURI(t)

	hover, err := handler.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 36, Character: 8}, // inside fn total
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "fn total -> %t7 {")
	assert.Contains(t, content.Value, "loop_start L0 items: %el1, %ix2 in %t0")

	require.NotNil(t, rec.last())
	assert.Empty(t, rec.last().Diagnostics)

	none, err := handler.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 4, Character: 0}, // graph line
		},
	})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDiagnosticsFollowEdits(t *testing.T) {
	handler := lsp.NewHandler(driver.Options{})
	rec := &recorder{}
	uri := "file:///tmp/scratch.dfg"

	bad := `graph g
fn f -> %s {
    %x = constant() @[] : f64 {value = 1.0}
    %b = axis_broadcast(%x) @[rows] : f64 {axis = rows}
    %s = reduce(%b) @[] over [rows] : f64 {fn = "sum"}
}
`
	err := handler.TextDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "dfg", Text: bad},
	})
	require.NoError(t, err)

	published := rec.last()
	require.NotNil(t, published)
	assert.Equal(t, uri, published.URI)
	require.Len(t, published.Diagnostics, 1)
	d := published.Diagnostics[0]
	assert.Equal(t, "E0301", d.Code.Value)
	assert.Equal(t, uint32(3), d.Range.Start.Line)
	assert.Equal(t, uint32(4), d.Range.Start.Character)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Contains(t, d.Message, "cannot open axis rows")

	hover, err := handler.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 2},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.(protocol.MarkupContent).Value, "was not lowered")

	fixed := `graph g
fn f -> %s {
    %x = constant() @[] : f64 {value = 1.0}
    %s = reduce(%x) @[] : f64 {fn = "sum"}
}
`
	err = handler.TextDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: fixed}},
	})
	require.NoError(t, err)
	assert.Len(t, rec.published, 2)
	assert.Empty(t, rec.last().Diagnostics)

	err = handler.TextDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
}

func TestDidChangeRejectsIncrementalEdits(t *testing.T) {
	handler := lsp.NewHandler(driver.Options{})
	err := handler.TextDocumentDidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///tmp/x.dfg"},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{},
			Text:  "x",
		}},
	})
	assert.Error(t, err)
}

func TestInitializeAdvertisesCapabilities(t *testing.T) {
	handler := lsp.NewHandler(driver.Options{})
	result, err := handler.Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	init, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, true, init.Capabilities.HoverProvider)

	tokens, ok := init.Capabilities.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	require.True(t, ok)
	assert.Equal(t, lsp.SemanticTokenTypes, tokens.Legend.TokenTypes)

	require.NoError(t, handler.SetTrace(&glsp.Context{}, &protocol.SetTraceParams{Value: protocol.TraceValueVerbose}))
	assert.Equal(t, protocol.TraceValueVerbose, protocol.GetTraceValue())
	require.NoError(t, handler.Shutdown(&glsp.Context{}))
	assert.Equal(t, protocol.TraceValueOff, protocol.GetTraceValue())
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func onLine(tokens []DecodedToken, line uint32) []DecodedToken {
	var out []DecodedToken
	for _, tok := range tokens {
		if tok.Line == line {
			out = append(out, tok)
		}
	}
	return out
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // LSP uses 0-based indexing
			Char:      char + 1, // LSP uses 0-based indexing
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
