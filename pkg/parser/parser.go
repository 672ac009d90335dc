// Package parser turns the concrete syntax of the array language into the
// untyped expression tree of package ast.
//
//	file        := { definition }
//	definition  := [ IDENT ( ":=" | "=" ) ] abstraction
//	abstraction := "lambda" IDENT { "," IDENT } ":" expr
//	expr        := NUMBER | IDENT | "_" | IDENT "(" [ expr { "," expr } ] ")"
//
// Calls are kept generic; recognizing map, zip, product and reduce is the
// job of the sanitizer.
package parser

import (
	"errors"
	"fmt"

	"fpc/pkg/ast"
)

// MainName is given to a definition written without a name.
const MainName = "main"

type SyntaxError struct {
	Pos ast.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	if !e.Pos.IsValid() {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Msg)
}

func assert(pred bool, tok Tok, msg ...string) {
	if !pred {
		m := "unexpected " + tok.describe()
		if len(msg) > 0 {
			m = msg[0]
		}
		panic(&SyntaxError{Pos: tok.Pos, Msg: m})
	}
}

func assertf(pred bool, tok Tok, format string, a ...any) {
	if !pred {
		panic(&SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf(format, a...)})
	}
}

// expect consumes the next token, which must be of type typ.
func expect(ts *TokenStream, typ int) Tok {
	tok := ts.Next()
	assertf(tok.typ == typ, tok, "expected %s, found %s", tokNames[typ], tok.describe())
	return tok
}

func recoverSyntax(err *error) {
	if r := recover(); r != nil {
		var serr *SyntaxError
		if e, ok := r.(error); ok && errors.As(e, &serr) {
			*err = serr
			return
		}
		panic(r)
	}
}

// ParseFile parses every definition of src. name is only recorded.
func ParseFile(name, src string) (f *ast.File, err error) {
	defer recoverSyntax(&err)
	ts := NewTokenStream(src)
	f = &ast.File{Name: name}
	seen := make(map[string]bool)
	for ts.Peek().typ != EOF {
		def := parseDefinition(ts)
		at := def.NamePos
		if !at.IsValid() {
			at = def.Lambda.Pos()
		}
		assertf(!seen[def.Name], Tok{Pos: at}, "%s redefined", def.Name)
		seen[def.Name] = true
		f.Defs = append(f.Defs, def)
	}
	return f, nil
}

// ParseExpr parses a single expression or abstraction.
func ParseExpr(src string) (e ast.Expr, err error) {
	defer recoverSyntax(&err)
	ts := NewTokenStream(src)
	if ts.Peek().typ == LAMBDA {
		e = parseAbstraction(ts)
	} else {
		e = parseExpr(ts)
	}
	tok := ts.Next()
	assert(tok.typ == EOF, tok)
	return e, nil
}

func parseDefinition(ts *TokenStream) *ast.Def {
	def := &ast.Def{Name: MainName}
	if ts.Peek().typ == IDENT {
		name := ts.Next()
		op := ts.Next()
		assertf(op.typ == WALRUS || op.typ == ASSIGN, op, "expected ':=' or '=' after %s, found %s", name.lit, op.describe())
		def.Name, def.NamePos = name.lit, name.Pos
	}
	def.Lambda = parseAbstraction(ts)
	return def
}

func parseAbstraction(ts *TokenStream) *ast.Lambda {
	kw := expect(ts, LAMBDA)
	l := &ast.Lambda{BaseNode: ast.BaseNode{At: kw.Pos}}
	seen := make(map[string]bool)
	for {
		tok := expect(ts, IDENT)
		assertf(!seen[tok.lit], tok, "duplicate parameter %s", tok.lit)
		seen[tok.lit] = true
		l.Params = append(l.Params, &ast.Var{BaseNode: ast.BaseNode{At: tok.Pos}, Name: tok.lit})
		if ts.Peek().typ != COMMA {
			break
		}
		ts.Next()
	}
	expect(ts, COLON)
	l.Body = parseExpr(ts)
	return l
}

func parseExpr(ts *TokenStream) ast.Expr {
	tok := ts.Next()
	switch tok.typ {
	case NUMBER:
		return &ast.Literal{BaseNode: ast.BaseNode{At: tok.Pos}, Value: tok.lit}
	case UNDERSCORE:
		return &ast.Var{BaseNode: ast.BaseNode{At: tok.Pos}, Name: tok.lit}
	case IDENT:
		if ts.Peek().typ == LPAREN {
			return parseCallExpr(ts, tok)
		}
		return &ast.Var{BaseNode: ast.BaseNode{At: tok.Pos}, Name: tok.lit}
	case LAMBDA:
		assertf(false, tok, "nested lambda is not supported")
	}
	assertf(false, tok, "expected expression, found %s", tok.describe())
	return nil
}

func parseCallExpr(ts *TokenStream, name Tok) *ast.Call {
	expect(ts, LPAREN)
	c := &ast.Call{
		BaseNode: ast.BaseNode{At: name.Pos},
		Func:     &ast.Var{BaseNode: ast.BaseNode{At: name.Pos}, Name: name.lit},
	}
	if ts.Peek().typ == RPAREN {
		ts.Next()
		return c
	}
	for {
		c.Args = append(c.Args, parseExpr(ts))
		tok := ts.Next()
		if tok.typ == RPAREN {
			return c
		}
		assertf(tok.typ == COMMA, tok, "expected ',' or ')', found %s", tok.describe())
	}
}
