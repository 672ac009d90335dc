package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

type handler struct {
	server *Server
}

// NewHandler routes JSON-RPC requests to s.
func NewHandler(s *Server) jsonrpc2.Handler {
	return &handler{server: s}
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	result, err := h.dispatch(ctx, req)
	if req.Notif {
		if err != nil {
			h.server.logger.Printf("%s: %v", req.Method, err)
		}
		return
	}
	if err != nil {
		var rpcErr *jsonrpc2.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
		}
		_ = conn.ReplyWithError(ctx, req.ID, rpcErr)
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.server.logger.Printf("failed to reply: %v", err)
	}
}

func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: req.Method + ": missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
	}
	return nil
}

func (h *handler) dispatch(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "initialize":
		var params lsp.InitializeParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return h.server.Initialize(ctx, params)

	case "initialized":
		return nil, nil

	case "shutdown":
		return nil, h.server.Shutdown(ctx)

	case "exit":
		return nil, h.server.Exit(ctx)

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return nil, h.server.DidOpen(ctx, params)

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return nil, h.server.DidChange(ctx, params)

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return nil, h.server.DidClose(ctx, params)

	case "textDocument/definition":
		var params lsp.TextDocumentPositionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return h.server.Definition(ctx, params)

	case "textDocument/hover":
		var params lsp.TextDocumentPositionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return h.server.Hover(ctx, params)

	case "textDocument/completion":
		var params lsp.CompletionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return h.server.Completion(ctx, params)

	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
	}
}
