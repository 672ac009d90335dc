package fpc

import (
	"fpc/pkg/ast"
	"fpc/pkg/utils"
)

type family int

const (
	notCombinator family = iota
	mapFamily
	zipFamily
	productFamily
	reduceFamily
)

type combinator struct {
	family family
	mode   ast.Mode
	tensor bool
}

var vocabulary = map[string]combinator{
	"map":      {family: mapFamily},
	"pmap":     {family: mapFamily, mode: ast.Parallel},
	"tmap":     {family: mapFamily, tensor: true},
	"ptmap":    {family: mapFamily, mode: ast.Parallel, tensor: true},
	"zip":      {family: zipFamily},
	"pzip":     {family: zipFamily, mode: ast.Parallel},
	"product":  {family: productFamily},
	"pproduct": {family: productFamily, mode: ast.Parallel},
	"reduce":   {family: reduceFamily},
}

// Combinators returns the combinator vocabulary in documentation order.
func Combinators() []string {
	return []string{"map", "pmap", "tmap", "ptmap", "zip", "pzip", "product", "pproduct", "reduce"}
}

func isCombinator(name string) bool {
	_, ok := vocabulary[name]
	return ok
}

// Sanitize rewrites the generic calls produced by the parser into the
// combinator nodes, bottom-up. Calls outside the vocabulary stay generic
// calls on a function reference.
func Sanitize(e ast.Expr, reg *Registry) (ast.Expr, error) {
	s := &sanitizer{reg: reg, bound: make(map[string]int)}
	return s.sanitize(e)
}

type sanitizer struct {
	reg   *Registry
	bound map[string]int // lambda parameters in scope
}

func (s *sanitizer) sanitize(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Lambda:
		for _, p := range n.Params {
			s.bound[p.Name]++
		}
		defer func() {
			for _, p := range n.Params {
				s.bound[p.Name]--
			}
		}()
		body, err := s.sanitize(n.Body)
		if err != nil {
			return nil, err
		}
		out := *n
		out.Body = body
		return &out, nil
	case *ast.Call:
		return s.sanitizeCall(n)
	default:
		return e, nil
	}
}

func (s *sanitizer) sanitizeCall(c *ast.Call) (ast.Expr, error) {
	args := make([]ast.Expr, len(c.Args))
	for i, arg := range c.Args {
		out, err := s.sanitize(arg)
		if err != nil {
			return nil, err
		}
		args[i] = out
	}
	name := ast.FuncName(c.Func)
	if name == "" {
		return nil, newError(UnknownIdentifier, c, "cannot call %s", c.Func)
	}
	comb, ok := vocabulary[name]
	if !ok {
		if err := s.checkFunc(c.Func, name); err != nil {
			return nil, err
		}
		return &ast.Call{BaseNode: c.BaseNode, Func: promote(c.Func), Args: args}, nil
	}
	switch comb.family {
	case mapFamily, reduceFamily:
		if len(args) != 2 {
			return nil, newError(ArityMismatch, c, "%s takes 2 arguments, got %d", name, len(args))
		}
		fn := ast.FuncName(args[0])
		if fn == "" {
			return nil, newError(UnknownIdentifier, args[0], "%s expects a function name, got %s", name, args[0])
		}
		if err := s.checkFunc(args[0], fn); err != nil {
			return nil, err
		}
		if comb.family == reduceFamily {
			return &ast.Reduce{BaseNode: c.BaseNode, Op: promote(args[0]), Target: args[1]}, nil
		}
		return &ast.Map{BaseNode: c.BaseNode, Func: promote(args[0]), Target: args[1], Tensor: comb.tensor, Mode: comb.mode}, nil
	case zipFamily:
		return &ast.Zip{BaseNode: c.BaseNode, Args: args, Mode: comb.mode}, nil
	default:
		return &ast.Product{BaseNode: c.BaseNode, Args: args, Mode: comb.mode}, nil
	}
}

func (s *sanitizer) checkFunc(at ast.Expr, name string) error {
	if isCombinator(name) {
		return newError(UnknownIdentifier, at, "combinator %s cannot be used as a function", name)
	}
	if s.bound[name] > 0 || s.reg.Known(name) {
		return nil
	}
	return newError(UnknownIdentifier, at, "%s is not defined", name)
}

// promote turns an identifier in function position into a FuncRef.
func promote(e ast.Expr) ast.Expr {
	if v, ok := utils.Cast[*ast.Var](e); ok {
		return &ast.FuncRef{BaseNode: v.BaseNode, Name: v.Name}
	}
	return e
}
