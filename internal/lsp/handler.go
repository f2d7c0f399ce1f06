// Package lsp implements the language server for the minic subset: live
// diagnostics on open/change/save, and hover showing a function's signature.
package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"minic/internal/ast"
	"minic/internal/diag"
	"minic/internal/errors"
	"minic/internal/parser"
	"minic/internal/sema"
)

var log = diag.Logger("minic.lsp")

// Handler implements the glsp protocol.Handler callbacks for one running
// server. State is guarded by mu since glsp dispatches each notification on
// its own goroutine.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	units   map[string]*ast.Unit
}

// NewHandler creates an empty Handler ready to be wired into a
// protocol.Handler.
func NewHandler() *Handler {
	return &Handler{
		content: make(map[string]string),
		units:   make(map[string]*ast.Unit),
	}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: ptrBool(true),
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// TextDocumentSyncKindFull means each change carries the full new text.
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("unexpected incremental content change for %s", params.TextDocument.URI)
	}
	return h.refresh(ctx, params.TextDocument.URI, change.Text)
}

func (h *Handler) TextDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	h.mu.RLock()
	path, _ := uriToPath(string(params.TextDocument.URI))
	text, ok := h.content[path]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.refresh(ctx, params.TextDocument.URI, text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(string(params.TextDocument.URI))
	if err != nil {
		return nil
	}
	h.mu.Lock()
	delete(h.content, path)
	delete(h.units, path)
	h.mu.Unlock()
	return nil
}

// TextDocumentHover reports the signature of the function whose name the
// cursor is over.
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(string(params.TextDocument.URI))
	if err != nil {
		return nil, nil
	}

	h.mu.RLock()
	unit := h.units[path]
	h.mu.RUnlock()
	if unit == nil {
		return nil, nil
	}

	word := wordAt(h.lineAt(path, int(params.Position.Line)), int(params.Position.Character))
	if word == "" {
		return nil, nil
	}

	for _, fn := range unit.Functions {
		if fn.Name.Value == word {
			md := protocol.MarkupContent{Kind: protocol.MarkupKindPlainText, Value: signature(fn)}
			return &protocol.Hover{Contents: md}, nil
		}
	}
	return nil, nil
}

func (h *Handler) lineAt(path string, line int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lines := strings.Split(h.content[path], "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}

func signature(fn *ast.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s(", fn.Name.Value)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Name.Value, p.Type.Value)
	}
	b.WriteString(")")
	if fn.Return != nil {
		fmt.Fprintf(&b, " -> %s", fn.Return.Value)
	}
	return b.String()
}

// refresh re-runs lex->parse->sema over the document text, caches the AST on
// success, and publishes diagnostics either way.
func (h *Handler) refresh(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(string(uri))
	if err != nil {
		return fmt.Errorf("invalid document uri %s: %w", uri, err)
	}

	h.mu.Lock()
	h.content[path] = text
	h.mu.Unlock()

	unit, err := parser.Parse(path, text)
	if err != nil {
		publish(ctx, uri, []errors.CompilerError{errors.FromError(err)})
		return nil
	}

	semaErrs := sema.Check(unit)
	if len(semaErrs) > 0 {
		diags := make([]errors.CompilerError, 0, len(semaErrs))
		for _, e := range semaErrs {
			diags = append(diags, errors.FromError(e))
		}
		publish(ctx, uri, diags)
		return nil
	}

	h.mu.Lock()
	h.units[path] = unit
	h.mu.Unlock()

	publish(ctx, uri, nil)
	return nil
}

func publish(ctx *glsp.Context, uri protocol.DocumentUri, errs []errors.CompilerError) {
	diagnostics := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		line := uint32(0)
		if e.Pos.Line > 0 {
			line = uint32(e.Pos.Line - 1)
		}
		col := uint32(0)
		if e.Pos.Column > 0 {
			col = uint32(e.Pos.Column - 1)
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: col},
				End:   protocol.Position{Line: line, Character: col + 1},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("minic"),
			Code:     &protocol.IntegerOrString{Value: e.Code},
			Message:  e.Message,
		})
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func wordAt(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	isIdent := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	start := col
	for start > 0 && isIdent(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdent(line[end]) {
		end++
	}
	return line[start:end]
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool                                                       { return &b }
func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity     { return &s }
func ptrString(s string) *string                                                 { return &s }
