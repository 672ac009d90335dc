// Package ast declares the symbolic expression tree of the functional
// array language: identifiers, literals, lambdas, generic calls and the
// combinator variants (map, zip, product, reduce).
//
// Nodes are immutable once built. Rewriting is done with Substitute, which
// returns a new tree and shares every subtree it did not touch.
package ast

import (
	"fmt"

	"fpc/pkg/types"
	"fpc/pkg/utils"
)

// Pos is a 1-based line/column position in the source text.
type Pos struct {
	Line, Col int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Expr is implemented by every node of the tree.
type Expr interface {
	Pos() Pos
	ID() int
	String() string
	exprNode()
}

// BaseNode carries the bookkeeping shared by all nodes. Neither field takes
// part in structural equality.
type BaseNode struct {
	At     Pos
	NodeID int
}

func (b BaseNode) Pos() Pos { return b.At }
func (b BaseNode) ID() int  { return b.NodeID }
func (BaseNode) exprNode()  {}

// Mode distinguishes the sequential combinators from their p-prefixed
// parallel variants. It has no effect on typing.
type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) prefix() string {
	if m == Parallel {
		return "p"
	}
	return ""
}

type Var struct {
	BaseNode
	Name string
}

// FuncRef is an identifier used in function position.
type FuncRef struct {
	BaseNode
	Name string
}

type Literal struct {
	BaseNode
	Value string
}

type Lambda struct {
	BaseNode
	Params []*Var
	Body   Expr
}

// Call is the application of any function outside the combinator vocabulary.
type Call struct {
	BaseNode
	Func Expr
	Args []Expr
}

// Map applies Func elementwise to Target. Tensor marks tmap/ptmap, whose
// rank is derived from the arity of the product it maps over.
type Map struct {
	BaseNode
	Func   Expr
	Target Expr
	Tensor bool
	Mode   Mode
}

type Zip struct {
	BaseNode
	Args []Expr
	Mode Mode
}

type Product struct {
	BaseNode
	Args []Expr
	Mode Mode
}

type Reduce struct {
	BaseNode
	Op     Expr
	Target Expr
}

// Typed is a resolved subtree. Of is the id of the node it replaced.
type Typed struct {
	BaseNode
	Type types.Type
	Of   int
}

func (v *Var) String() string     { return v.Name }
func (f *FuncRef) String() string { return f.Name }
func (l *Literal) String() string { return l.Value }
func (t *Typed) String() string   { return "<" + t.Type.String() + ">" }

func (l *Lambda) String() string {
	return fmt.Sprintf("lambda %s: %s", utils.MapJoin(l.Params, func(p *Var) string { return p.Name }, ", "), l.Body)
}

func (c *Call) String() string { return apply(c.Func.String(), c.Args) }

func (m *Map) String() string { return apply(m.Name(), []Expr{m.Func, m.Target}) }

func (z *Zip) String() string { return apply(z.Name(), z.Args) }

func (p *Product) String() string { return apply(p.Name(), p.Args) }

func (r *Reduce) String() string { return apply(r.Name(), []Expr{r.Op, r.Target}) }

func apply(name string, args []Expr) string {
	return name + "(" + utils.MapJoin(args, func(e Expr) string { return e.String() }, ", ") + ")"
}

// Name returns the combinator name the node was written with.
func (m *Map) Name() string {
	if m.Tensor {
		return m.Mode.prefix() + "tmap"
	}
	return m.Mode.prefix() + "map"
}

func (z *Zip) Name() string     { return z.Mode.prefix() + "zip" }
func (p *Product) Name() string { return p.Mode.prefix() + "product" }
func (r *Reduce) Name() string  { return "reduce" }

// FuncName returns the identifier of a Var or FuncRef, or "" for anything else.
func FuncName(e Expr) string {
	switch v := e.(type) {
	case *Var:
		return v.Name
	case *FuncRef:
		return v.Name
	default:
		return ""
	}
}

// Format renders e in concrete syntax.
func Format(e Expr) string { return e.String() }

// Def is a named abstraction of a source file.
type Def struct {
	Name    string
	NamePos Pos
	Lambda  *Lambda
}

type File struct {
	Name string
	Defs []*Def
}

// Lookup returns the definition called name, or nil.
func (f *File) Lookup(name string) *Def {
	for _, d := range f.Defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}
