package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	int32T = Scalar(Integer, 4)
	real64 = Scalar(Real, 8)
)

func TestWithRank(t *testing.T) {
	t1 := Tuple(real64, int32T)
	expected := Tuple(ScalarType{Kind: Real, Precision: 8, Rank: 2}, ScalarType{Kind: Integer, Precision: 4, Rank: 2})
	assert.Equal(t, expected, WithRank(t1, 2))
	assert.Equal(t, real64, WithRank(WithRank(real64, 3), 0))
}

func TestListProvenance(t *testing.T) {
	tt := Tuple(int32T, real64)
	l := List(tt)
	require.NotNil(t, l.Parent)
	assert.True(t, Equal(*l.Parent, tt))
	got, err := ListOfTuple(l)
	require.NoError(t, err)
	assert.Equal(t, tt, got)

	_, err = ListOfTuple(ListType{Elt: tt})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Nil(t, List(real64).Parent)
}

func TestDowncasts(t *testing.T) {
	_, err := AsList(real64)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = AsTuple(List(real64))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	l, err := AsList(List(real64))
	assert.NoError(t, err)
	assert.Equal(t, real64, l.Elt)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(List(Tuple(int32T, real64)), List(Tuple(int32T, real64))))
	assert.True(t, Equal(ListType{Elt: real64}, List(real64)))
	assert.False(t, Equal(Tuple(int32T), Tuple(int32T, int32T)))
	assert.False(t, Equal(real64, WithRank(real64, 1)))
	assert.False(t, Equal(nil, real64))
	assert.True(t, Equal(nil, nil))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "real64", real64.String())
	assert.Equal(t, "int32[:,:]", WithRank(int32T, 2).String())
	assert.Equal(t, "[][]int32", WithRank(int32T, 2).GoStr())
	assert.Equal(t, "[(int32, real64)]", List(Tuple(int32T, real64)).String())
	assert.Equal(t, "[]struct{ F0 int32; F1 float64 }", List(Tuple(int32T, real64)).GoStr())
	assert.Equal(t, "complex128", Scalar(Complex, 16).GoStr())
	assert.Equal(t, "bool", Scalar(Bool, 4).String())
	assert.Equal(t, "real(precision=8, rank=1)", WithRank(real64, 1).StringFull())
	f := FuncType{Name: "f", Params: []Type{real64, int32T}, Return: real64}
	assert.Equal(t, "func f(real64, int32) real64", f.String())
	assert.Equal(t, "func(float64, int32) float64", f.GoStr())
}

func TestArity(t *testing.T) {
	assert.Equal(t, 1, Arity(List(real64)))
	assert.Equal(t, 3, Arity(List(Tuple(real64, real64, int32T))))
	assert.Equal(t, 2, Arity(Tuple(real64, real64)))
}

func TestFromPrefix(t *testing.T) {
	expected := map[byte]ScalarType{
		'i': Scalar(Integer, 4),
		's': Scalar(Real, 4),
		'd': Scalar(Real, 8),
		'c': Scalar(Complex, 8),
		'z': Scalar(Complex, 16),
	}
	for i := 0; i < len(Prefixes); i++ {
		got, ok := FromPrefix(Prefixes[i])
		assert.True(t, ok)
		assert.Equal(t, expected[Prefixes[i]], got)
	}
	_, ok := FromPrefix('x')
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	tests := []struct {
		src      string
		expected Type
	}{
		{"double", real64},
		{"int", int32T},
		{"int[:]", WithRank(int32T, 1)},
		{"float32[:, :, :]", WithRank(Scalar(Real, 4), 3)},
		{"(int, double)", Tuple(int32T, real64)},
		{"complex64", Scalar(Complex, 8)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.src)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.expected, got, tt.src)
	}
	for _, src := range []string{"quad", "int[1]", "(int, double", "int]"} {
		_, err := Parse(src)
		assert.Error(t, err, src)
	}
}
