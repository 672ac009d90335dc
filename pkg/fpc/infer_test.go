package fpc

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpc/pkg/ast"
	"fpc/pkg/parser"
	"fpc/pkg/types"
)

var (
	real64 = types.Scalar(types.Real, 8)
	real32 = types.Scalar(types.Real, 4)
	int32T = types.Scalar(types.Integer, 4)
)

func fn(name string, ret types.Type, params ...types.Type) types.FuncType {
	return types.FuncType{Name: name, Params: params, Return: ret}
}

func testRegistry() *Registry {
	return NewRegistry(
		fn("f", real64, real64),
		fn("dsum", real64, real64),
		fn("xsum", real64, real64),
		fn("dadd", real64, real64, real64),
		fn("g3", real64, real64, real64, real64),
		fn("h", real64, int32T, real64),
	)
}

func check(t *testing.T, src string, opts ...Option) (*Result, error) {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return Check(e, testRegistry(), 'd', opts...)
}

func kindOf(err error) ErrorKind {
	var aerr *AnalysisError
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return 0
}

func TestScenarioMap(t *testing.T) {
	res, err := check(t, "lambda x: map(f, x)")
	require.NoError(t, err)
	tassert.True(t, types.Equal(types.List(real64), res.Type))
	tassert.True(t, types.Equal(types.List(real64), res.Env.Get("x", Value)))
	tassert.Equal(t, "lambda x: <[real64]>", res.Expr.String())
	tassert.Len(t, res.Tag, 8)
}

func TestScenarioZip(t *testing.T) {
	expected := types.List(types.Tuple(int32T, real64))
	res, err := check(t, "zip(a, b)", WithExpected(expected))
	require.NoError(t, err)
	tassert.True(t, types.Equal(expected, res.Type))
	tassert.True(t, types.Equal(types.List(int32T), res.Env.Get("a", Value)))
	tassert.True(t, types.Equal(types.List(real64), res.Env.Get("b", Value)))
	_, ok := res.Expr.(*ast.Typed)
	tassert.True(t, ok)
}

func TestScenarioZipArity(t *testing.T) {
	_, err := check(t, "zip(a, b, c)", WithExpected(types.List(types.Tuple(int32T, real64))))
	tassert.ErrorIs(t, err, ErrArityMismatch)
	tassert.EqualError(t, err, "1:1: arity mismatch: zip has 3 arguments, expected 2")
}

func TestScenarioReduce(t *testing.T) {
	res, err := check(t, "lambda xs: reduce(dsum, xs)")
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, res.Type))
	tassert.True(t, types.Equal(types.List(real64), res.Env.Get("xs", Value)))

	res, err = check(t, "reduce(dsum, target)")
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, res.Type))
}

func TestScenarioPrecisionTag(t *testing.T) {
	_, err := check(t, "lambda xs: reduce(xsum, xs)")
	tassert.ErrorIs(t, err, ErrPrecisionTag)
	tassert.Equal(t, PrecisionTagError, kindOf(err))
}

func TestArityInvariant(t *testing.T) {
	expected := types.List(types.Tuple(int32T, real64))
	for n := 1; n <= 4; n++ {
		args := make([]string, n)
		for i := range args {
			args[i] = fmt.Sprintf("a%d", i)
		}
		for _, comb := range []string{"zip", "pzip", "product", "pproduct"} {
			src := fmt.Sprintf("%s(%s)", comb, strings.Join(args, ", "))
			res, err := check(t, src, WithExpected(expected))
			if err != nil {
				tassert.ErrorIs(t, err, ErrArityMismatch, src)
				tassert.NotEqual(t, 2, n, src)
				continue
			}
			tt, err := types.ListOfTuple(res.Type)
			require.NoError(t, err, src)
			tassert.Equal(t, n, tt.Len(), src)
		}
	}
}

func TestTensorRank(t *testing.T) {
	res, err := check(t, "lambda a, b, c: tmap(g3, product(a, b, c))")
	require.NoError(t, err)
	rank2 := types.WithRank(real64, 2)
	tassert.True(t, types.Equal(types.List(rank2), res.Type))
	for _, name := range []string{"a", "b", "c"} {
		tassert.True(t, types.Equal(types.List(rank2), res.Env.Get(name, Value)), name)
	}
	// the registry is untouched
	tassert.True(t, types.Equal(types.Tuple(real64, real64, real64), res.Env.Get("g3", Domain)))
}

func TestTensorNeedsProduct(t *testing.T) {
	_, err := check(t, "lambda a, b: tmap(dadd, zip(a, b))")
	tassert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = check(t, "lambda a: ptmap(f, a)")
	tassert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestReduceOverZip(t *testing.T) {
	res, err := check(t, "lambda a, b: reduce(dadd, zip(a, b))")
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, res.Type))
	tassert.True(t, types.Equal(types.List(real64), res.Env.Get("b", Value)))

	_, err = check(t, "lambda a, b, c: reduce(dadd, pzip(a, b, c))")
	tassert.ErrorIs(t, err, ErrArityMismatch)
}

func TestReduceOverMap(t *testing.T) {
	res, err := check(t, "lambda xs: reduce(dsum, map(f, xs))")
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, res.Type))
	tassert.Equal(t, "lambda xs: <real64>", res.Expr.String())
}

func TestReduceArityFromResolvedTarget(t *testing.T) {
	target := &ast.Typed{Type: types.List(types.Tuple(real64, real64, real64))}
	e := &ast.Lambda{Body: &ast.Reduce{Op: &ast.FuncRef{Name: "dadd"}, Target: target}}
	env, err := NewEnv(testRegistry(), 'd')
	require.NoError(t, err)
	_, err = NewAnalyzer(e, env).Analyze()
	tassert.ErrorIs(t, err, ErrArityMismatch)
}

func TestMapOverZip(t *testing.T) {
	res, err := check(t, "lambda a, b: map(dadd, zip(a, b))")
	require.NoError(t, err)
	tassert.True(t, types.Equal(types.List(real64), res.Type))

	_, err = check(t, "lambda a, b: map(f, zip(a, b))")
	tassert.ErrorIs(t, err, ErrArityMismatch)
}

func TestCall(t *testing.T) {
	res, err := check(t, "lambda x, y: h(x, y)")
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, res.Type))
	tassert.True(t, types.Equal(int32T, res.Env.Get("x", Value)))
	tassert.True(t, types.Equal(real64, res.Env.Get("y", Value)))

	_, err = check(t, "lambda x: h(x)")
	tassert.ErrorIs(t, err, ErrArityMismatch)
}

func TestCallLiteral(t *testing.T) {
	res, err := check(t, "lambda x: h(1, x)")
	require.NoError(t, err)
	lit := res.Source.(*ast.Lambda).Body.(*ast.Call).Args[0]
	tassert.True(t, types.Equal(int32T, res.Types[lit.ID()]))

	_, err = check(t, "lambda x: map(f, 2)")
	tassert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestElementalMath(t *testing.T) {
	e, err := parser.ParseExpr("lambda xs: map(sin, xs)")
	require.NoError(t, err)
	res, err := Check(e, testRegistry(), 'i')
	require.NoError(t, err)
	tassert.True(t, types.Equal(types.List(int32T), res.Type))
	tassert.True(t, types.Equal(types.Tuple(int32T), res.Env.Lookup("sin_args")))

	res, err = Check(e, testRegistry(), 's')
	require.NoError(t, err)
	tassert.True(t, types.Equal(types.List(real32), res.Type))
	// only the functions in use are seeded
	tassert.Nil(t, res.Env.Get("cos", Codomain))
}

func TestMissingExpectedType(t *testing.T) {
	_, err := check(t, "lambda x: x")
	tassert.ErrorIs(t, err, ErrMissingExpectedType)
	_, err = check(t, "zip(a, b)")
	tassert.ErrorIs(t, err, ErrMissingExpectedType)
}

func TestConflictingValue(t *testing.T) {
	_, err := check(t, "lambda x: h(x, x)")
	tassert.ErrorIs(t, err, ErrTypeMismatch)
	tassert.ErrorIs(t, err, types.ErrTypeMismatch)
	var aerr *AnalysisError
	require.ErrorAs(t, err, &aerr)
	tassert.Equal(t, "x", aerr.Node.String())
}

func TestUnresolved(t *testing.T) {
	var buf bytes.Buffer
	_, err := check(t, "lambda g, xs: map(g, xs)", WithLogger(log.New(&buf, "", 0)))
	tassert.ErrorIs(t, err, ErrUnresolvedType)
	var aerr *AnalysisError
	require.ErrorAs(t, err, &aerr)
	tassert.IsType(t, &ast.Map{}, aerr.Node)
	tassert.Len(t, aerr.Path, 2)
	tassert.EqualError(t, err, "1:15: unresolved type: no type for map (in lambda)")
	tassert.Contains(t, buf.String(), "pass 2 after: lambda g, xs: map(g, xs)")
	tassert.NotContains(t, buf.String(), "pass 3")
}

func TestIdempotence(t *testing.T) {
	for _, src := range []string{
		"lambda x: map(f, x)",
		"lambda a, b: reduce(dadd, zip(a, b))",
		"lambda a, b, c: tmap(g3, product(a, b, c))",
	} {
		e, err := parser.ParseExpr(src)
		require.NoError(t, err)
		sanitized, err := Sanitize(e, testRegistry())
		require.NoError(t, err)
		env, err := NewEnv(testRegistry(), 'd')
		require.NoError(t, err)
		a := NewAnalyzer(sanitized, env)
		_, err = a.Analyze()
		require.NoError(t, err, src)
		root, dump := a.Root(), a.Env().String()
		require.NoError(t, a.Pass())
		tassert.True(t, ast.Equal(root, a.Root()), src)
		tassert.Equal(t, dump, a.Env().String(), src)
	}
}

func TestDeriveRoundTrip(t *testing.T) {
	for _, src := range []string{
		"lambda x: map(f, x)",
		"lambda xs: reduce(dsum, pmap(f, xs))",
		"lambda a, b: map(dadd, zip(a, b))",
		"lambda a, b, c: ptmap(g3, pproduct(a, b, c))",
		"lambda x, y: h(x, y)",
		"lambda x: h(1, x)",
	} {
		res, err := check(t, src)
		require.NoError(t, err, src)
		byID := make(map[int]ast.Expr)
		ast.Walk(res.Source, func(e ast.Expr) bool {
			byID[e.ID()] = e
			return true
		})
		require.NotEmpty(t, res.Types, src)
		for id, want := range res.Types {
			got, err := DeriveIn(res.Env, res.Source, byID[id])
			require.NoError(t, err, src)
			tassert.True(t, types.Equal(want, got), "%s: %s: %s != %s", src, byID[id], got, want)
		}
		ast.Walk(res.Expr, func(e ast.Expr) bool {
			if typed, ok := e.(*ast.Typed); ok {
				got, err := DeriveIn(res.Env, res.Source, byID[typed.Of])
				require.NoError(t, err, src)
				tassert.True(t, types.Equal(typed.Type, got), src)
			}
			return true
		})
	}
}

func TestDeriveLiteralArgument(t *testing.T) {
	res, err := check(t, "lambda x: h(1, x)")
	require.NoError(t, err)
	call := res.Source.(*ast.Lambda).Body.(*ast.Call)
	lit := call.Args[0]
	tassert.True(t, types.Equal(int32T, res.Types[lit.ID()]))
	got, err := DeriveIn(res.Env, res.Source, lit)
	require.NoError(t, err)
	tassert.True(t, types.Equal(int32T, got), got)
	// out of its tree the literal has no call to take a scalar from
	got, err = Derive(res.Env, lit)
	require.NoError(t, err)
	tassert.True(t, types.Equal(real64, got), got)
}
