package fpc

import (
	"fmt"
	"strings"

	"fpc/pkg/ast"
	"fpc/pkg/utils"
)

// Printer renders an analyzed definition back to source text, each
// combinator and call annotated with its type.
type Printer struct {
	buf  strings.Builder
	name string
	res  *Result
}

func NewPrinter(res *Result, name string) *Printer {
	return &Printer{res: res, name: name}
}

func (p *Printer) Print() string {
	p.buf.Reset()
	p.printHeader()
	p.buf.WriteString(p.name)
	p.buf.WriteString(" := ")
	p.buf.WriteString(p.expr(p.res.Source))
	p.buf.WriteString("\n")
	return p.buf.String()
}

func (p *Printer) printHeader() {
	env := p.res.Env
	fmt.Fprintf(&p.buf, "// types (tag %s)\n", p.res.Tag)
	for _, label := range env.Labels() {
		fmt.Fprintf(&p.buf, "//   %s = %s\n", label, env.Lookup(label))
	}
	fmt.Fprintf(&p.buf, "// %s: %s\n", p.name, p.signature())
}

// signature spells the definition as a Go function type.
func (p *Printer) signature() string {
	l, ok := p.res.Source.(*ast.Lambda)
	if !ok {
		return p.res.Type.GoStr()
	}
	params := utils.MapJoin(l.Params, func(v *ast.Var) string {
		if t, ok := p.res.Types[v.ID()]; ok {
			return v.Name + " " + t.GoStr()
		}
		return v.Name + " any"
	}, ", ")
	return fmt.Sprintf("func(%s) %s", params, p.res.Type.GoStr())
}

func (p *Printer) expr(e ast.Expr) string {
	args := func(list []ast.Expr) string {
		return utils.MapJoin(list, p.expr, ", ")
	}
	switch v := e.(type) {
	case *ast.Lambda:
		return fmt.Sprintf("lambda %s: %s", utils.MapJoin(v.Params, func(prm *ast.Var) string { return prm.Name }, ", "), p.expr(v.Body))
	case *ast.Map:
		return fmt.Sprintf("%s%s(%s, %s)", v.Name(), p.annotation(v), p.expr(v.Func), p.expr(v.Target))
	case *ast.Zip:
		return fmt.Sprintf("%s%s(%s)", v.Name(), p.annotation(v), args(v.Args))
	case *ast.Product:
		return fmt.Sprintf("%s%s(%s)", v.Name(), p.annotation(v), args(v.Args))
	case *ast.Reduce:
		return fmt.Sprintf("%s%s(%s, %s)", v.Name(), p.annotation(v), p.expr(v.Op), p.expr(v.Target))
	case *ast.Call:
		return fmt.Sprintf("%s%s(%s)", p.expr(v.Func), p.annotation(v), args(v.Args))
	default:
		return e.String()
	}
}

// annotation is the recorded type of e, or the one derived from the final
// environment for nodes the analysis did not record.
func (p *Printer) annotation(e ast.Expr) string {
	t, ok := p.res.Types[e.ID()]
	if !ok {
		var err error
		if t, err = DeriveIn(p.res.Env, p.res.Source, e); err != nil {
			return ""
		}
	}
	return "<" + t.String() + ">"
}
