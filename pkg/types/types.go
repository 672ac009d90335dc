package types

import (
	"errors"
	"fmt"
	"strings"

	"fpc/pkg/utils"
)

// ErrTypeMismatch is returned by the downcasts when the type tag does not match.
var ErrTypeMismatch = errors.New("type mismatch")

type Type interface {
	GoStr() string
	String() string
	StringFull() string
}

type Kind int

const (
	Integer Kind = iota + 1
	Real
	Complex
	Bool
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "int"
	case Real:
		return "real"
	case Complex:
		return "complex"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// goName returns the Go spelling of a scalar of kind k and precision bytes.
func (k Kind) goName(precision int) string {
	switch k {
	case Integer:
		return fmt.Sprintf("int%d", precision*8)
	case Real:
		return fmt.Sprintf("float%d", precision*8)
	case Complex:
		return fmt.Sprintf("complex%d", precision*8)
	case Bool:
		return "bool"
	default:
		return "UNKNOWN"
	}
}

type ScalarType struct {
	Kind      Kind
	Precision int // width in bytes
	Rank      int
}

func Scalar(kind Kind, precision int) ScalarType {
	return ScalarType{Kind: kind, Precision: precision}
}

func (s ScalarType) GoStr() string {
	return strings.Repeat("[]", s.Rank) + s.Kind.goName(s.Precision)
}

func (s ScalarType) String() string {
	out := s.Kind.String()
	if s.Kind != Bool {
		out += fmt.Sprintf("%d", s.Precision*8)
	}
	if s.Rank > 0 {
		out += "[" + strings.Repeat(":,", s.Rank-1) + ":]"
	}
	return out
}

func (s ScalarType) StringFull() string {
	return fmt.Sprintf("%s(precision=%d, rank=%d)", s.Kind, s.Precision, s.Rank)
}

type TupleType struct {
	Elts []Type
}

func Tuple(elts ...Type) TupleType {
	return TupleType{Elts: elts}
}

func (t TupleType) Len() int { return len(t.Elts) }

func (t TupleType) GoStr() string {
	var fields []string
	for i, el := range t.Elts {
		fields = append(fields, fmt.Sprintf("F%d %s", i, el.GoStr()))
	}
	return "struct{ " + strings.Join(fields, "; ") + " }"
}

func (t TupleType) String() string {
	return "(" + utils.MapJoin(t.Elts, func(el Type) string { return el.String() }, ", ") + ")"
}

func (t TupleType) StringFull() string {
	return "tuple(" + utils.MapJoin(t.Elts, func(el Type) string { return el.StringFull() }, ", ") + ")"
}

// ListType is a sequence of Elt. Parent records the tuple the element type
// was extracted from; it never takes part in equality.
type ListType struct {
	Elt    Type
	Parent *TupleType
}

// List wraps t in a ListType, linking the provenance when t is a tuple.
func List(t Type) ListType {
	out := ListType{Elt: t}
	if tt, ok := t.(TupleType); ok {
		out.Parent = &tt
	}
	return out
}

func (l ListType) GoStr() string      { return "[]" + l.Elt.GoStr() }
func (l ListType) String() string     { return "[" + l.Elt.String() + "]" }
func (l ListType) StringFull() string { return "list(" + l.Elt.StringFull() + ")" }

// FuncType is the signature of a pre-typed function.
type FuncType struct {
	Name   string
	Params []Type
	Return Type
}

func (f FuncType) GoStr() string {
	return fmt.Sprintf("func(%s) %s", utils.MapJoin(f.Params, func(p Type) string { return p.GoStr() }, ", "), f.Return.GoStr())
}

func (f FuncType) String() string {
	return fmt.Sprintf("func %s(%s) %s", f.Name, utils.MapJoin(f.Params, func(p Type) string { return p.String() }, ", "), f.Return.String())
}

func (f FuncType) StringFull() string {
	return fmt.Sprintf("func %s(%s) %s", f.Name, utils.MapJoin(f.Params, func(p Type) string { return p.StringFull() }, ", "), f.Return.StringFull())
}

// Domain returns the parameter tuple of the function.
func (f FuncType) Domain() TupleType { return Tuple(f.Params...) }

// WithRank returns a copy of t with the rank of every scalar replaced.
func WithRank(t Type, rank int) Type {
	switch t1 := t.(type) {
	case ScalarType:
		t1.Rank = rank
		return t1
	case TupleType:
		return Tuple(utils.Map(t1.Elts, func(el Type) Type { return WithRank(el, rank) })...)
	case ListType:
		return List(WithRank(t1.Elt, rank))
	default:
		return t
	}
}

func AsList(t Type) (ListType, error) {
	if v, ok := t.(ListType); ok {
		return v, nil
	}
	return ListType{}, fmt.Errorf("%w: expected a list, got %s", ErrTypeMismatch, describe(t))
}

func AsTuple(t Type) (TupleType, error) {
	if v, ok := t.(TupleType); ok {
		return v, nil
	}
	return TupleType{}, fmt.Errorf("%w: expected a tuple, got %s", ErrTypeMismatch, describe(t))
}

// ListOfTuple unwraps a ListType of TupleType, checking the provenance link.
func ListOfTuple(t Type) (TupleType, error) {
	l, err := AsList(t)
	if err != nil {
		return TupleType{}, err
	}
	tt, err := AsTuple(l.Elt)
	if err != nil {
		return TupleType{}, err
	}
	if l.Parent == nil || !Equal(*l.Parent, tt) {
		return TupleType{}, fmt.Errorf("%w: list of %s has no matching provenance", ErrTypeMismatch, tt)
	}
	return tt, nil
}

func describe(t Type) string {
	if t == nil {
		return "nothing"
	}
	return t.String()
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Type) bool {
	switch a1 := a.(type) {
	case nil:
		return b == nil
	case ScalarType:
		b1, ok := b.(ScalarType)
		return ok && a1 == b1
	case TupleType:
		b1, ok := b.(TupleType)
		if !ok || len(a1.Elts) != len(b1.Elts) {
			return false
		}
		for i := range a1.Elts {
			if !Equal(a1.Elts[i], b1.Elts[i]) {
				return false
			}
		}
		return true
	case ListType:
		b1, ok := b.(ListType)
		return ok && Equal(a1.Elt, b1.Elt)
	case FuncType:
		b1, ok := b.(FuncType)
		return ok && a1.Name == b1.Name && Equal(a1.Domain(), b1.Domain()) && Equal(a1.Return, b1.Return)
	default:
		return false
	}
}

// Arity is the number of values one element of t carries: the tuple length
// for a tuple or a list of tuples, 1 otherwise.
func Arity(t Type) int {
	switch t1 := t.(type) {
	case TupleType:
		return t1.Len()
	case ListType:
		if tt, ok := t1.Elt.(TupleType); ok {
			return tt.Len()
		}
	}
	return 1
}
