package fpc

import (
	"fmt"
	"strings"

	"fpc/pkg/ast"
	"fpc/pkg/utils"
)

type ErrorKind int

const (
	// UnknownIdentifier denotes a name with no binding and no signature.
	UnknownIdentifier ErrorKind = iota + 1
	// ArityMismatch denotes a wrong argument count or tuple width.
	ArityMismatch
	// MissingExpectedType denotes a node that needs a type pushed down.
	MissingExpectedType
	// PrecisionTagError denotes a reduction operator without a valid tag.
	PrecisionTagError
	// UnresolvedType denotes an expression still deferred when the pass
	// budget runs out.
	UnresolvedType
	// TypeMismatch denotes two incompatible types for the same thing.
	TypeMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownIdentifier:
		return "unknown identifier"
	case ArityMismatch:
		return "arity mismatch"
	case MissingExpectedType:
		return "missing expected type"
	case PrecisionTagError:
		return "precision tag error"
	case UnresolvedType:
		return "unresolved type"
	case TypeMismatch:
		return "type mismatch"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is.
var (
	ErrUnknownIdentifier   = &AnalysisError{Kind: UnknownIdentifier}
	ErrArityMismatch       = &AnalysisError{Kind: ArityMismatch}
	ErrMissingExpectedType = &AnalysisError{Kind: MissingExpectedType}
	ErrPrecisionTag        = &AnalysisError{Kind: PrecisionTagError}
	ErrUnresolvedType      = &AnalysisError{Kind: UnresolvedType}
	ErrTypeMismatch        = &AnalysisError{Kind: TypeMismatch}
)

// AnalysisError aborts the analysis of one expression.
type AnalysisError struct {
	Kind ErrorKind
	Node ast.Expr   // offending node, if any
	Path []ast.Expr // root to Node, filled for UnresolvedType
	msg  string
	err  error
}

func (e *AnalysisError) Error() string {
	var b strings.Builder
	if e.Node != nil && e.Node.Pos().IsValid() {
		b.WriteString(e.Node.Pos().String())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	if len(e.Path) > 1 {
		b.WriteString(" (in ")
		b.WriteString(utils.MapJoin(e.Path[:len(e.Path)-1], describeNode, " > "))
		b.WriteString(")")
	}
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *AnalysisError) Unwrap() error { return e.err }

// Is matches any AnalysisError of the same kind, so that the sentinels
// work with errors.Is.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	return ok && t.Kind == e.Kind
}

func describeNode(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Lambda:
		return "lambda"
	case *ast.Map:
		return n.Name()
	case *ast.Zip:
		return n.Name()
	case *ast.Product:
		return n.Name()
	case *ast.Reduce:
		return n.Name()
	case *ast.Call:
		return ast.FuncName(n.Func)
	default:
		return e.String()
	}
}

func newError(kind ErrorKind, n ast.Expr, format string, a ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Node: n, msg: fmt.Sprintf(format, a...)}
}

func wrapError(kind ErrorKind, n ast.Expr, err error, format string, a ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Node: n, msg: fmt.Sprintf(format, a...), err: err}
}
