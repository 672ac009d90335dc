package fpc

import (
	"fmt"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpc/pkg/ast"
	"fpc/pkg/parser"
	"fpc/pkg/types"
)

func TestPrinter(t *testing.T) {
	e, err := parser.ParseExpr("lambda x: map(f, x)")
	require.NoError(t, err)
	res, err := Check(e, NewRegistry(fn("f", real64, real64)), 'd')
	require.NoError(t, err)
	expected := fmt.Sprintf(`// types (tag %s)
//   f = real64
//   f_args = (real64)
//   x = [real64]
// sq: func(x []float64) []float64
sq := lambda x: map<[real64]>(f, x)
`, res.Tag)
	tassert.Equal(t, expected, NewPrinter(res, "sq").Print())
}

func TestPrinterNested(t *testing.T) {
	e, err := parser.ParseExpr("lambda a, b, unused: reduce(dadd, pzip(a, h(1, b)))")
	require.NoError(t, err)
	reg := NewRegistry(fn("dadd", real64, real64, real64), fn("h", types.List(real64), int32T, types.List(real64)))
	res, err := Check(e, reg, 'd')
	require.NoError(t, err)
	out := NewPrinter(res, "main").Print()
	tassert.Contains(t, out, "// main: func(a []float64, b []float64, unused any) float64\n")
	tassert.Contains(t, out, "main := lambda a, b, unused: reduce<real64>(dadd, pzip<[(real64, real64)]>(a, h<[real64]>(1, b)))\n")
}

func TestPrinterBareExpression(t *testing.T) {
	e, err := parser.ParseExpr("zip(a, b)")
	require.NoError(t, err)
	expected := types.List(types.Tuple(int32T, real64))
	res, err := Check(e, nil, 'd', WithExpected(expected))
	require.NoError(t, err)
	out := NewPrinter(res, "z").Print()
	tassert.Contains(t, out, "// z: []struct{ F0 int32; F1 float64 }\n")
	tassert.Contains(t, out, "z := zip<[(int32, real64)]>(a, b)\n")
}

func TestPrinterDerivesMissingAnnotations(t *testing.T) {
	e, err := parser.ParseExpr("lambda x: map(f, x)")
	require.NoError(t, err)
	res, err := Check(e, NewRegistry(fn("f", real64, real64)), 'd')
	require.NoError(t, err)
	body := res.Source.(*ast.Lambda).Body
	delete(res.Types, body.ID())
	tassert.Contains(t, NewPrinter(res, "sq").Print(), "sq := lambda x: map<[real64]>(f, x)\n")
}
