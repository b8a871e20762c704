package lsp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"axc/grammar"
	"axc/internal/driver"
	"axc/internal/loopir"
)

var log = commonlog.GetLogger("axc.lsp")

// Handler implements the LSP server handlers for .dfg files
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	results map[string]*driver.Result
	options driver.Options
}

// NewHandler creates a handler that compiles documents with opts
func NewHandler(opts driver.Options) *Handler {
	return &Handler{
		content: make(map[string]string),
		results: make(map[string]*driver.Result),
		options: opts,
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen compiles the opened document and publishes its diagnostics
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange recompiles on every change. Sync is full, so the
// last change holds the whole text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	text, ok := "", false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			text, ok = c.Text, c.Range == nil
		}
	}
	if !ok {
		return fmt.Errorf("change to %s carries no full text", params.TextDocument.URI)
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Debugf("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.results, path)
	return nil
}

// TextDocumentHover shows the loop program of the function under the cursor
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	r, err := h.result(ctx, params.TextDocument.URI)
	if err != nil || r.File == nil {
		return nil, err
	}

	// EndPos is the position of the token after the closing brace, which
	// may be the next declaration, so a later start wins
	line := int(params.Position.Line) + 1
	var f *grammar.Func
	for _, candidate := range r.File.Funcs() {
		if line >= candidate.Pos.Line && line <= candidate.EndPos.Line {
			f = candidate
		}
	}
	if f == nil {
		return nil, nil
	}
	u := r.Unit(f.Name)
	if u == nil {
		return nil, nil
	}

	var value string
	switch {
	case u.Loop != nil:
		value = "```\n" + loopir.Print(u.Loop) + "```"
	case u.Err != nil:
		value = fmt.Sprintf("`%s` was not lowered: %s", u.Name, u.Err)
	default:
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
		Range: &protocol.Range{
			Start: protocol.Position{Line: uint32(f.Pos.Line - 1)},
			End:   protocol.Position{Line: uint32(f.EndPos.Line - 1), Character: uint32(max(0, f.EndPos.Column-1))},
		},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if _, err := h.result(ctx, params.TextDocument.URI); err != nil {
		return nil, err
	}

	h.mu.RLock()
	src := h.content[path]
	h.mu.RUnlock()

	return &protocol.SemanticTokens{Data: encodeSemanticTokens(collectSemanticTokens(path, src))}, nil
}

// result returns the compilation of a document, compiling it from disk
// when the client never opened it
func (h *Handler) result(ctx *glsp.Context, uri protocol.DocumentUri) (*driver.Result, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	r, ok := h.results[path]
	h.mu.RUnlock()
	if ok {
		return r, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := h.update(ctx, uri, string(content)); err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.results[path], nil
}

func (h *Handler) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	r := driver.Compile(context.Background(), path, text, h.options)

	h.mu.Lock()
	h.content[path] = text
	h.results[path] = r
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, uri, ConvertDiagnostics(r.Diagnostics))
	return nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
