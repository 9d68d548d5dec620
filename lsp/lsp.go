// Package lsp serves lexical diagnostics over the Language Server Protocol.
//
// Every open document is tokenized against an EBNF token grammar; runs of
// bytes no token production matches are published as errors.
package lsp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/dhamidi/backtrack/ebnflex"
	"github.com/dhamidi/backtrack/input"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"golang.org/x/exp/ebnf"
)

const lsName = "backtrack"

type Server struct {
	grammar ebnf.Grammar
	handler protocol.Handler
	server  *server.Server
	version string
	log     commonlog.Logger

	mu   sync.Mutex
	docs map[string]string
}

func NewServer(grammar ebnf.Grammar, version string) *Server {
	ls := &Server{
		grammar: grammar,
		version: version,
		log:     commonlog.GetLogger("backtrack.lsp"),
		docs:    make(map[string]string),
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.log.Info("client initialized")
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, params.TextDocument.URI, textChange.Text)
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.mu.Lock()
	delete(ls.docs, params.TextDocument.URI)
	ls.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.update(ctx, params.TextDocument.URI, *params.Text)
		return nil
	}
	ls.mu.Lock()
	text, ok := ls.docs[params.TextDocument.URI]
	ls.mu.Unlock()
	if ok {
		ls.update(ctx, params.TextDocument.URI, text)
	}
	return nil
}

func (ls *Server) update(ctx *glsp.Context, uri, text string) {
	ls.mu.Lock()
	ls.docs[uri] = text
	ls.mu.Unlock()

	diagnostics, err := Diagnose(context.Background(), ls.grammar, text)
	if err != nil {
		ls.log.Errorf("%s: %s", uri, err)
		return
	}
	ls.log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnose tokenizes text and reports one error per run of unmatched bytes.
func Diagnose(ctx context.Context, grammar ebnf.Grammar, text string) ([]protocol.Diagnostic, error) {
	lexer := ebnflex.NewLexer(grammar, input.NewBuffer(strings.NewReader(text)))
	tokens, err := lexer.Tokenize(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	diagnostics := []protocol.Diagnostic{}
	for i := 0; i < len(tokens); i++ {
		if tokens[i].Kind != ebnflex.KindError {
			continue
		}
		start := tokens[i].Position
		var run strings.Builder
		for ; i < len(tokens) && tokens[i].Kind == ebnflex.KindError; i++ {
			run.WriteString(tokens[i].Literal)
		}
		end := tokens[i].Position

		severity := protocol.DiagnosticSeverityError
		source := lsName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: toProtocolPosition(text, start),
				End:   toProtocolPosition(text, end),
			},
			Severity: &severity,
			Source:   &source,
			Message:  fmt.Sprintf("unexpected input %q", run.String()),
		})
	}
	return diagnostics, nil
}

// toProtocolPosition converts a lexer position, whose column counts bytes,
// into a zero-based position counting UTF-16 code units.
func toProtocolPosition(text string, p ebnflex.Position) protocol.Position {
	lineStart := p.Offset - int64(p.Column-1)
	units := 0
	for _, r := range text[lineStart:p.Offset] {
		units += utf16.RuneLen(r)
	}
	return protocol.Position{
		Line:      protocol.UInteger(p.Line - 1),
		Character: protocol.UInteger(units),
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
