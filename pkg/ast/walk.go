package ast

import (
	"fmt"
	"reflect"

	"fpc/pkg/types"
)

// Children returns the immediate sub-expressions of e, in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Lambda:
		out := make([]Expr, 0, len(n.Params)+1)
		for _, p := range n.Params {
			out = append(out, p)
		}
		return append(out, n.Body)
	case *Call:
		return append([]Expr{n.Func}, n.Args...)
	case *Map:
		return []Expr{n.Func, n.Target}
	case *Zip:
		return n.Args
	case *Product:
		return n.Args
	case *Reduce:
		return []Expr{n.Op, n.Target}
	default:
		return nil
	}
}

// Equal reports whether a and b are structurally equal. Positions and node
// ids are ignored.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a1 := a.(type) {
	case *Var:
		b1, ok := b.(*Var)
		return ok && a1.Name == b1.Name
	case *FuncRef:
		b1, ok := b.(*FuncRef)
		return ok && a1.Name == b1.Name
	case *Literal:
		b1, ok := b.(*Literal)
		return ok && a1.Value == b1.Value
	case *Typed:
		b1, ok := b.(*Typed)
		return ok && types.Equal(a1.Type, b1.Type)
	case *Lambda:
		b1, ok := b.(*Lambda)
		if !ok || len(a1.Params) != len(b1.Params) {
			return false
		}
		for i := range a1.Params {
			if a1.Params[i].Name != b1.Params[i].Name {
				return false
			}
		}
		return Equal(a1.Body, b1.Body)
	case *Call:
		b1, ok := b.(*Call)
		return ok && Equal(a1.Func, b1.Func) && equalList(a1.Args, b1.Args)
	case *Map:
		b1, ok := b.(*Map)
		return ok && a1.Tensor == b1.Tensor && a1.Mode == b1.Mode && Equal(a1.Func, b1.Func) && Equal(a1.Target, b1.Target)
	case *Zip:
		b1, ok := b.(*Zip)
		return ok && a1.Mode == b1.Mode && equalList(a1.Args, b1.Args)
	case *Product:
		b1, ok := b.(*Product)
		return ok && a1.Mode == b1.Mode && equalList(a1.Args, b1.Args)
	case *Reduce:
		b1, ok := b.(*Reduce)
		return ok && Equal(a1.Op, b1.Op) && Equal(a1.Target, b1.Target)
	default:
		panic(fmt.Sprintf("unexpected node %v", reflect.TypeOf(a)))
	}
}

func equalList(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Substitute replaces every occurrence of old in tree by repl.
func Substitute(tree, old, repl Expr) Expr {
	return SubstituteFunc(tree, old, func(Expr) Expr { return repl })
}

// SubstituteFunc replaces every occurrence of old in tree by the result of
// clb applied to the matched occurrence. The input tree is left untouched;
// ancestors of a replaced node are copied (keeping their ids), everything
// else is shared.
func SubstituteFunc(tree, old Expr, clb func(matched Expr) Expr) Expr {
	if Equal(tree, old) {
		return clb(tree)
	}
	sub := func(e Expr) (Expr, bool) {
		n := SubstituteFunc(e, old, clb)
		return n, n != e
	}
	subList := func(list []Expr) ([]Expr, bool) {
		var out []Expr
		for i, e := range list {
			n, changed := sub(e)
			if changed && out == nil {
				out = append(make([]Expr, 0, len(list)), list[:i]...)
			}
			if out != nil {
				out = append(out, n)
			}
		}
		if out == nil {
			return list, false
		}
		return out, true
	}
	switch n := tree.(type) {
	case *Lambda:
		if body, ok := sub(n.Body); ok {
			cp := *n
			cp.Body = body
			return &cp
		}
	case *Call:
		fn, ok1 := sub(n.Func)
		args, ok2 := subList(n.Args)
		if ok1 || ok2 {
			cp := *n
			cp.Func, cp.Args = fn, args
			return &cp
		}
	case *Map:
		fn, ok1 := sub(n.Func)
		target, ok2 := sub(n.Target)
		if ok1 || ok2 {
			cp := *n
			cp.Func, cp.Target = fn, target
			return &cp
		}
	case *Zip:
		if args, ok := subList(n.Args); ok {
			cp := *n
			cp.Args = args
			return &cp
		}
	case *Product:
		if args, ok := subList(n.Args); ok {
			cp := *n
			cp.Args = args
			return &cp
		}
	case *Reduce:
		op, ok1 := sub(n.Op)
		target, ok2 := sub(n.Target)
		if ok1 || ok2 {
			cp := *n
			cp.Op, cp.Target = op, target
			return &cp
		}
	}
	return tree
}

// Walk visits e in pre-order. Children are skipped when clb returns false.
func Walk(e Expr, clb func(Expr) bool) {
	if e == nil || !clb(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, clb)
	}
}

// Find returns every occurrence of target in tree, in pre-order.
func Find(tree, target Expr) (out []Expr) {
	Walk(tree, func(e Expr) bool {
		if Equal(e, target) {
			out = append(out, e)
			return false
		}
		return true
	})
	return
}

// PathTo returns the chain of nodes leading from root to target (both
// included), matching target by identity first and by structure otherwise.
func PathTo(root, target Expr) []Expr {
	if path := pathTo(root, func(e Expr) bool { return e == target }); path != nil {
		return path
	}
	return pathTo(root, func(e Expr) bool { return Equal(e, target) })
}

func pathTo(e Expr, match func(Expr) bool) []Expr {
	if match(e) {
		return []Expr{e}
	}
	for _, c := range Children(e) {
		if path := pathTo(c, match); path != nil {
			return append([]Expr{e}, path...)
		}
	}
	return nil
}

// Number returns a copy of e whose nodes carry fresh ids, assigned in
// pre-order starting at 1.
func Number(e Expr) Expr {
	next := 0
	return number(e, &next)
}

func number(e Expr, next *int) Expr {
	*next++
	id := *next
	list := func(in []Expr) []Expr {
		if in == nil {
			return nil
		}
		out := make([]Expr, len(in))
		for i, el := range in {
			out[i] = number(el, next)
		}
		return out
	}
	switch n := e.(type) {
	case *Var:
		cp := *n
		cp.NodeID = id
		return &cp
	case *FuncRef:
		cp := *n
		cp.NodeID = id
		return &cp
	case *Literal:
		cp := *n
		cp.NodeID = id
		return &cp
	case *Typed:
		cp := *n
		cp.NodeID = id
		return &cp
	case *Lambda:
		cp := *n
		cp.NodeID = id
		cp.Params = make([]*Var, len(n.Params))
		for i, p := range n.Params {
			cp.Params[i] = number(p, next).(*Var)
		}
		cp.Body = number(n.Body, next)
		return &cp
	case *Call:
		cp := *n
		cp.NodeID = id
		cp.Func = number(n.Func, next)
		cp.Args = list(n.Args)
		return &cp
	case *Map:
		cp := *n
		cp.NodeID = id
		cp.Func = number(n.Func, next)
		cp.Target = number(n.Target, next)
		return &cp
	case *Zip:
		cp := *n
		cp.NodeID = id
		cp.Args = list(n.Args)
		return &cp
	case *Product:
		cp := *n
		cp.NodeID = id
		cp.Args = list(n.Args)
		return &cp
	case *Reduce:
		cp := *n
		cp.NodeID = id
		cp.Op = number(n.Op, next)
		cp.Target = number(n.Target, next)
		return &cp
	default:
		panic(fmt.Sprintf("unexpected node %v", reflect.TypeOf(e)))
	}
}
