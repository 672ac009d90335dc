package lsp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"fpc/pkg/ast"
	"fpc/pkg/fpc"
	"fpc/pkg/parser"
	"fpc/pkg/types"
	"fpc/pkg/utils"
)

// Notifier sends notifications to the client. *jsonrpc2.Conn implements it.
type Notifier interface {
	Notify(ctx context.Context, method string, params interface{}, opts ...jsonrpc2.CallOption) error
}

type Server struct {
	mu        sync.Mutex
	documents map[string]*Document
	defs      *DefinitionManager
	reg       *fpc.Registry
	prefix    byte
	conn      Notifier
	logger    *log.Logger
	exit      func(code int)
}

// Document is an open source file and the analysis of each of its
// definitions. A definition that failed to analyze has no result.
type Document struct {
	content string
	lines   lines
	file    *ast.File
	results map[string]*fpc.Result
}

// NewServer creates a language server. A nil registry is discovered from
// the workspace root on initialize; a zero prefix falls back to the
// registry's, then to 'd'.
func NewServer(reg *fpc.Registry, prefix byte, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[fpc-lsp] ", log.LstdFlags)
	}
	return &Server{
		documents: make(map[string]*Document),
		defs:      NewDefinitionManager(),
		reg:       reg,
		prefix:    prefix,
		logger:    logger,
		exit:      os.Exit,
	}
}

// Attach sets the connection diagnostics are published on.
func (s *Server) Attach(conn Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *Server) Initialize(ctx context.Context, params lsp.InitializeParams) (lsp.InitializeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Printf("initializing for %s", params.Root())
	if s.reg == nil {
		if dir := strings.TrimPrefix(string(params.Root()), "file://"); dir != "" {
			s.discoverRegistry(dir)
		}
	}
	if s.prefix == 0 {
		s.prefix = 'd'
		if s.reg != nil && s.reg.Prefix != 0 {
			s.prefix = s.reg.Prefix
		}
	}
	kind := lsp.TDSKFull
	return lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Kind: &kind,
			},
			DefinitionProvider: true,
			HoverProvider:      true,
			CompletionProvider: &lsp.CompletionOptions{
				TriggerCharacters: []string{"(", ","},
			},
		},
	}, nil
}

func (s *Server) discoverRegistry(dir string) {
	path, err := fpc.FindRegistry(dir)
	if err != nil || path == "" {
		return
	}
	reg, err := fpc.LoadRegistry(path)
	if err != nil {
		s.logger.Printf("registry: %v", err)
		return
	}
	s.logger.Printf("using registry %s", path)
	s.reg = reg
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("shutting down")
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	s.exit(0)
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params lsp.DidOpenTextDocumentParams) error {
	return s.updateDocument(ctx, string(params.TextDocument.URI), params.TextDocument.Text)
}

func (s *Server) DidChange(ctx context.Context, params lsp.DidChangeTextDocumentParams) error {
	if n := len(params.ContentChanges); n > 0 {
		return s.updateDocument(ctx, string(params.TextDocument.URI), params.ContentChanges[n-1].Text)
	}
	return nil
}

func (s *Server) DidClose(ctx context.Context, params lsp.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.mu.Lock()
	delete(s.documents, uri)
	s.mu.Unlock()
	s.defs.RemoveFile(uri)
	s.publish(ctx, uri, []lsp.Diagnostic{})
	return nil
}

// updateDocument re-parses and re-analyzes a document, then publishes its
// diagnostics. An empty list clears the ones previously sent.
func (s *Server) updateDocument(ctx context.Context, uri, content string) error {
	s.mu.Lock()
	reg, prefix := s.reg, s.prefix
	s.mu.Unlock()
	if prefix == 0 {
		prefix = 'd'
	}

	doc := &Document{content: content, lines: splitLines(content), results: make(map[string]*fpc.Result)}
	diagnostics := []lsp.Diagnostic{}
	f, err := parser.ParseFile(uri, content)
	if err != nil {
		var se *parser.SyntaxError
		if !errors.As(err, &se) {
			return fmt.Errorf("failed to parse %s: %w", uri, err)
		}
		diagnostics = append(diagnostics, lsp.Diagnostic{
			Range:    doc.lines.tokenRange(se.Pos, 1),
			Severity: lsp.Error,
			Code:     "syntax error",
			Source:   "fpc",
			Message:  se.Msg,
		})
		s.defs.RemoveFile(uri)
	} else {
		doc.file = f
		s.defs.Load(uri, f, doc.lines)
		for _, def := range f.Defs {
			res, err := fpc.Check(def.Lambda, reg, prefix)
			if err != nil {
				diagnostics = append(diagnostics, analysisDiagnostic(doc.lines, def, err))
				continue
			}
			doc.results[def.Name] = res
		}
	}

	s.mu.Lock()
	s.documents[uri] = doc
	s.mu.Unlock()
	s.publish(ctx, uri, diagnostics)
	return nil
}

func (s *Server) publish(ctx context.Context, uri string, diagnostics []lsp.Diagnostic) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	err := conn.Notify(ctx, "textDocument/publishDiagnostics", lsp.PublishDiagnosticsParams{
		URI:         lsp.DocumentURI(uri),
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Printf("publishing diagnostics for %s: %v", uri, err)
	}
}

// analysisDiagnostic places err on its offending node, or on the name of
// the definition when the error has no position.
func analysisDiagnostic(ls lines, def *ast.Def, err error) lsp.Diagnostic {
	at, width := def.NamePos, len(def.Name)
	if !at.IsValid() {
		at, width = def.Lambda.Pos(), len("lambda")
	}
	d := lsp.Diagnostic{Severity: lsp.Error, Source: "fpc", Message: err.Error()}
	var ae *fpc.AnalysisError
	if errors.As(err, &ae) {
		d.Code = ae.Kind.String()
		if ae.Node != nil && ae.Node.Pos().IsValid() {
			at, width = ae.Node.Pos(), nodeWidth(ae.Node)
		}
	}
	d.Range = ls.tokenRange(at, width)
	return d
}

// nodeWidth is the length of the token a node starts at.
func nodeWidth(n ast.Expr) int {
	switch v := n.(type) {
	case *ast.Var:
		return len(v.Name)
	case *ast.FuncRef:
		return len(v.Name)
	case *ast.Literal:
		return len(v.Value)
	case *ast.Lambda:
		return len("lambda")
	case *ast.Map:
		return len(v.Name())
	case *ast.Zip:
		return len(v.Name())
	case *ast.Product:
		return len(v.Name())
	case *ast.Reduce:
		return len(v.Name())
	case *ast.Call:
		return len(ast.FuncName(v.Func))
	default:
		return 1
	}
}

func (s *Server) document(uri string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[uri]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", uri)
	}
	return doc, nil
}

// tree is the analyzed form of def when it has one, else the parsed form.
func (doc *Document) tree(def *ast.Def) ast.Expr {
	if res := doc.results[def.Name]; res != nil {
		return res.Source
	}
	return def.Lambda
}

// nodeAt finds the definition containing p and the innermost node whose
// token covers it. A nil node with a non-nil definition means p is on the
// definition's name.
func (doc *Document) nodeAt(p ast.Pos) (*ast.Def, ast.Expr) {
	if doc.file == nil {
		return nil, nil
	}
	for _, def := range doc.file.Defs {
		if def.NamePos.IsValid() && covers(def.NamePos, len(def.Name), p) {
			return def, nil
		}
		var found ast.Expr
		ast.Walk(doc.tree(def), func(n ast.Expr) bool {
			if covers(n.Pos(), nodeWidth(n), p) {
				found = n
			}
			return true
		})
		if found != nil {
			return def, found
		}
	}
	return nil, nil
}

func covers(start ast.Pos, width int, p ast.Pos) bool {
	return start.Line == p.Line && start.Col <= p.Col && p.Col < start.Col+width
}

func (s *Server) Hover(ctx context.Context, params lsp.TextDocumentPositionParams) (*lsp.Hover, error) {
	doc, err := s.document(string(params.TextDocument.URI))
	if err != nil {
		return nil, err
	}
	def, n := doc.nodeAt(doc.lines.pos(params.Position))
	if def == nil {
		return nil, nil
	}
	res := doc.results[def.Name]
	if res == nil {
		return nil, nil
	}
	var (
		label string
		typ   types.Type
		rng   lsp.Range
	)
	switch v := n.(type) {
	case nil:
		label, typ, rng = def.Name, definitionType(def.Name, res), doc.lines.tokenRange(def.NamePos, len(def.Name))
	case *ast.Lambda:
		label, typ, rng = def.Name, definitionType(def.Name, res), doc.lines.tokenRange(v.Pos(), nodeWidth(v))
	default:
		label, typ, rng = nodeLabel(v), typeOf(res, v), doc.lines.tokenRange(v.Pos(), nodeWidth(v))
	}
	if typ == nil {
		return nil, nil
	}
	value := label + ": " + typ.String()
	if utils.TryCast[types.FuncType](typ) {
		value = typ.String()
	}
	return &lsp.Hover{
		Contents: []lsp.MarkedString{
			{Language: "fpc", Value: value},
			{Language: "go", Value: typ.GoStr()},
		},
		Range: &rng,
	}, nil
}

func nodeLabel(n ast.Expr) string {
	switch v := n.(type) {
	case *ast.Call:
		return ast.FuncName(v.Func)
	case *ast.Map:
		return v.Name()
	case *ast.Zip:
		return v.Name()
	case *ast.Product:
		return v.Name()
	case *ast.Reduce:
		return v.Name()
	default:
		return n.String()
	}
}

// typeOf reads the inferred type of a node of res.Source.
func typeOf(res *fpc.Result, n ast.Expr) types.Type {
	switch v := n.(type) {
	case *ast.Var:
		if t, ok := res.Types[v.ID()]; ok {
			return t
		}
		return res.Env.Get(v.Name, fpc.Value)
	case *ast.FuncRef:
		cod := res.Env.Get(v.Name, fpc.Codomain)
		if cod == nil {
			return nil
		}
		f := types.FuncType{Name: v.Name, Return: cod}
		if dom := res.Env.Get(v.Name, fpc.Domain); dom != nil {
			if tt, err := types.AsTuple(dom); err == nil {
				f.Params = tt.Elts
			} else {
				f.Params = []types.Type{dom}
			}
		}
		return f
	default:
		return res.Types[n.ID()]
	}
}

// definitionType is the function type of an analyzed definition, or the
// type of its body when a parameter stayed unresolved.
func definitionType(name string, res *fpc.Result) types.Type {
	l, ok := res.Source.(*ast.Lambda)
	if !ok {
		return res.Type
	}
	params := make([]types.Type, len(l.Params))
	for i, p := range l.Params {
		t, ok := res.Types[p.ID()]
		if !ok {
			return res.Type
		}
		params[i] = t
	}
	return types.FuncType{Name: name, Params: params, Return: res.Type}
}

func (s *Server) Definition(ctx context.Context, params lsp.TextDocumentPositionParams) ([]lsp.Location, error) {
	uri := string(params.TextDocument.URI)
	doc, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	def, n := doc.nodeAt(doc.lines.pos(params.Position))
	if def == nil {
		return nil, nil
	}
	var name string
	switch v := n.(type) {
	case nil:
		name = def.Name
	case *ast.Var:
		for _, p := range def.Lambda.Params {
			if p.Name == v.Name {
				return []lsp.Location{{URI: lsp.DocumentURI(uri), Range: doc.lines.tokenRange(p.Pos(), len(p.Name))}}, nil
			}
		}
		name = v.Name
	case *ast.FuncRef:
		name = v.Name
	default:
		return nil, nil
	}
	if d, ok := s.defs.Lookup(uri, name); ok {
		return []lsp.Location{d.Location}, nil
	}
	return nil, nil
}

func (s *Server) Completion(ctx context.Context, params lsp.CompletionParams) (*lsp.CompletionList, error) {
	if _, err := s.document(string(params.TextDocument.URI)); err != nil {
		return nil, err
	}
	s.mu.Lock()
	reg := s.reg
	s.mu.Unlock()

	var items []lsp.CompletionItem
	seen := make(map[string]bool)
	add := func(item lsp.CompletionItem) {
		if !seen[item.Label] {
			seen[item.Label] = true
			items = append(items, item)
		}
	}
	for _, name := range fpc.Combinators() {
		add(lsp.CompletionItem{Label: name, Kind: lsp.CIKKeyword, Detail: "combinator"})
	}
	for _, name := range reg.Names() {
		f, _ := reg.Lookup(name)
		add(lsp.CompletionItem{Label: name, Kind: lsp.CIKFunction, Detail: f.String()})
	}
	for _, name := range fpc.ElementalMathFunctions {
		add(lsp.CompletionItem{Label: name, Kind: lsp.CIKFunction, Detail: "elemental"})
	}
	for _, name := range s.defs.Names() {
		add(lsp.CompletionItem{Label: name, Kind: lsp.CIKFunction, Detail: "definition"})
	}
	return &lsp.CompletionList{Items: items}, nil
}
