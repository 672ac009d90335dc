package fpc

import (
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpc/pkg/ast"
	"fpc/pkg/types"
)

func TestEnvSeeding(t *testing.T) {
	env, err := NewEnv(NewRegistry(fn("f", real64, real64), fn("h", real64, int32T, real64)), 'd')
	require.NoError(t, err)
	tassert.Equal(t, []string{"f", "f_args", "h", "h_args"}, env.Labels())
	tassert.True(t, types.Equal(types.Tuple(int32T, real64), env.Get("h", Domain)))
	tassert.True(t, types.Equal(real64, env.Get("h", Codomain)))
	tassert.Equal(t, real64, env.Default())
	tassert.Equal(t, byte('d'), env.Prefix())
	tassert.True(t, env.PreTyped("f"))
	tassert.False(t, env.PreTyped("x"))
}

func TestEnvBindElementals(t *testing.T) {
	e := &ast.Lambda{
		Params: []*ast.Var{{Name: "x"}},
		Body: &ast.Map{
			Func:   &ast.FuncRef{Name: "sin"},
			Target: &ast.Map{Func: &ast.FuncRef{Name: "sqrt"}, Target: &ast.Var{Name: "x"}},
		},
	}
	env, err := NewEnv(NewRegistry(fn("sqrt", int32T, int32T)), 's')
	require.NoError(t, err)
	require.NoError(t, env.BindElementals(e))
	real32 := types.Scalar(types.Real, 4)
	tassert.True(t, types.Equal(real32, env.Get("sin", Codomain)))
	tassert.True(t, types.Equal(types.Tuple(real32), env.Get("sin", Domain)))
	tassert.True(t, types.Equal(int32T, env.Get("sqrt", Codomain)))

	env, err = NewEnv(nil, 'd')
	require.NoError(t, err)
	require.NoError(t, env.Set("sin", Value, types.List(real64)))
	tassert.ErrorIs(t, env.BindElementals(e), ErrTypeMismatch)
}

func TestEnvLabel(t *testing.T) {
	env, err := NewEnv(NewRegistry(fn("f", real64, real64)), 'z')
	require.NoError(t, err)
	tassert.Equal(t, "f_args", env.Label("f", Domain))
	tassert.Equal(t, "f", env.Label("f", Codomain))
	tassert.Equal(t, "g", env.Label("g", Domain))
	tassert.Equal(t, "x", env.Label("x", Value))
	tassert.Equal(t, types.Scalar(types.Complex, 16), env.Default())
}

func TestEnvSet(t *testing.T) {
	env, err := NewEnv(nil, 'i')
	require.NoError(t, err)
	tassert.Nil(t, env.Get("x", Value))
	require.NoError(t, env.Set("x", Value, types.List(int32T)))
	require.NoError(t, env.Set("x", Value, types.List(int32T)))
	err = env.Set("x", Value, types.List(real64))
	tassert.ErrorIs(t, err, ErrTypeMismatch)
	tassert.ErrorIs(t, err, types.ErrTypeMismatch)
	tassert.True(t, types.Equal(types.List(int32T), env.Get("x", Value)))
}

func TestEnvClone(t *testing.T) {
	env, err := NewEnv(NewRegistry(fn("f", real64, real64)), 'd')
	require.NoError(t, err)
	cp := env.Clone()
	require.NoError(t, cp.Set("x", Value, real64))
	tassert.Nil(t, env.Get("x", Value))
	tassert.Equal(t, "f_args", cp.Label("f", Domain))
}

func TestEnvString(t *testing.T) {
	env, err := NewEnv(NewRegistry(fn("f", real64, real64)), 'd')
	require.NoError(t, err)
	expected := `============ types =============
  f = real64
  f_args = (real64)
================================
`
	tassert.Equal(t, expected, env.String())
}

func TestEnvBadPrefix(t *testing.T) {
	_, err := NewEnv(nil, 'q')
	tassert.ErrorIs(t, err, ErrPrecisionTag)
	tassert.Equal(t, "domain", Domain.String())
}

func TestParsePrefix(t *testing.T) {
	for _, s := range []string{"i", "s", "d", "c", "z"} {
		p, err := ParsePrefix(s)
		require.NoError(t, err, s)
		tassert.Equal(t, s[0], p)
	}
	for _, s := range []string{"", "dd", "x", "D"} {
		_, err := ParsePrefix(s)
		tassert.EqualError(t, err, `invalid prefix "`+s+`": expected one of isdcz`, s)
	}
}
