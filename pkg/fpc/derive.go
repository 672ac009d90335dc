package fpc

import (
	"fpc/pkg/ast"
	"fpc/pkg/types"
)

// Derive recomputes the type of a node of the analyzed source from the
// final environment alone, without running inference. A literal outside
// of its tree takes the default scalar; see DeriveIn.
func Derive(env *Env, n ast.Expr) (types.Type, error) {
	return derive(env, n, nil)
}

// DeriveIn is Derive for a node of root. A literal passed to a call takes
// the scalar of the matching domain element, as it did during inference.
func DeriveIn(env *Env, root, n ast.Expr) (types.Type, error) {
	return derive(env, n, argumentType(env, root, n))
}

// argumentType is the domain element a call of root expects for n, nil when
// n is not a call argument.
func argumentType(env *Env, root, n ast.Expr) types.Type {
	path := ast.PathTo(root, n)
	if len(path) < 2 {
		return nil
	}
	c, ok := path[len(path)-2].(*ast.Call)
	if !ok {
		return nil
	}
	dom, ok := env.Get(ast.FuncName(c.Func), Domain).(types.TupleType)
	if !ok || dom.Len() != len(c.Args) {
		return nil
	}
	for i, arg := range c.Args {
		if arg == n {
			return dom.Elts[i]
		}
	}
	return nil
}

func derive(env *Env, n ast.Expr, expected types.Type) (types.Type, error) {
	switch v := n.(type) {
	case *ast.Typed:
		return v.Type, nil
	case *ast.Literal:
		if s, ok := expected.(types.ScalarType); ok && s.Rank == 0 {
			return s, nil
		}
		return env.Default(), nil
	case *ast.Var:
		if t := env.Get(v.Name, Value); t != nil {
			return t, nil
		}
		return nil, newError(UnresolvedType, v, "%s has no type", v.Name)
	case *ast.Lambda:
		return Derive(env, v.Body)
	case *ast.Map:
		cod, err := codomain(env, v.Func)
		if err != nil {
			return nil, err
		}
		if v.Tensor {
			arity, ok := tupleArity(v.Target)
			if !ok {
				return nil, newError(TypeMismatch, v, "%s maps over a product, got %s", v.Name(), v.Target)
			}
			cod = types.WithRank(cod, arity-1)
		}
		return types.List(cod), nil
	case *ast.Zip:
		return deriveTuple(env, v.Args)
	case *ast.Product:
		return deriveTuple(env, v.Args)
	case *ast.Reduce:
		return codomain(env, v.Op)
	case *ast.Call:
		return codomain(env, v.Func)
	default:
		return nil, newError(TypeMismatch, n, "%s has no type", n)
	}
}

func codomain(env *Env, fn ast.Expr) (types.Type, error) {
	if t := env.Get(ast.FuncName(fn), Codomain); t != nil {
		return t, nil
	}
	return nil, newError(UnresolvedType, fn, "%s has no codomain", fn)
}

func deriveTuple(env *Env, args []ast.Expr) (types.Type, error) {
	elts := make([]types.Type, len(args))
	for i, arg := range args {
		t, err := Derive(env, arg)
		if err != nil {
			return nil, err
		}
		l, err := types.AsList(t)
		if err != nil {
			return nil, wrapError(TypeMismatch, arg, err, "%s", arg)
		}
		elts[i] = l.Elt
	}
	return types.List(types.Tuple(elts...)), nil
}
