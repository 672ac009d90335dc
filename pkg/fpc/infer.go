package fpc

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"fpc/pkg/ast"
	"fpc/pkg/types"
)

// MaxPasses bounds the fixed-point loop.
const MaxPasses = 2

type Analyzer struct {
	root     ast.Expr // current tree
	source   ast.Expr // numbered input tree
	env      *Env
	rootType types.Type
	expected types.Type
	tag      string
	logger   *log.Logger
	types    map[int]types.Type
	passes   int
}

type Option func(*Analyzer)

// WithExpected pushes t into the root of the analyzed expression.
func WithExpected(t types.Type) Option {
	return func(a *Analyzer) { a.expected = t }
}

// WithLogger traces every pass on l.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// Result is the outcome of a successful analysis.
type Result struct {
	Expr   ast.Expr           // tree with every resolved node replaced by ast.Typed
	Source ast.Expr           // sanitized input, with node ids
	Env    *Env               // final environment
	Type   types.Type         // type of the root
	Types  map[int]types.Type // type of each resolved node, by id
	Tag    string
}

// NewAnalyzer prepares the analysis of a sanitized expression. env is owned
// by the analyzer from now on; the elementals e uses must already be bound, see
// Env.BindElementals.
func NewAnalyzer(e ast.Expr, env *Env, opts ...Option) *Analyzer {
	source := ast.Number(e)
	a := &Analyzer{
		root:   source,
		source: source,
		env:    env,
		tag:    uuid.NewString()[:8],
		logger: log.New(io.Discard, "", 0),
		types:  make(map[int]types.Type),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Root() ast.Expr       { return a.root }
func (a *Analyzer) RootType() types.Type { return a.rootType }
func (a *Analyzer) Env() *Env            { return a.env }
func (a *Analyzer) Tag() string          { return a.tag }

// Analyze runs the passes until the root type is known.
func (a *Analyzer) Analyze() (*Result, error) {
	var last *pass
	for i := 0; i < MaxPasses && a.rootType == nil; i++ {
		p, err := a.runPass()
		if err != nil {
			return nil, err
		}
		last = p
	}
	if a.rootType == nil {
		return nil, a.unresolved(last)
	}
	return &Result{
		Expr:   a.root,
		Source: a.source,
		Env:    a.env,
		Type:   a.rootType,
		Types:  a.types,
		Tag:    a.tag,
	}, nil
}

// Pass visits the current tree once.
func (a *Analyzer) Pass() error {
	_, err := a.runPass()
	return err
}

func (a *Analyzer) runPass() (*pass, error) {
	a.passes++
	a.logger.Printf("[%s] pass %d before: %s", a.tag, a.passes, a.root)
	p := &pass{a: a, start: a.root}
	root, t, err := p.visit(a.root, a.root, a.expected)
	if err != nil {
		a.logger.Printf("[%s] pass %d failed: %v", a.tag, a.passes, err)
		return nil, err
	}
	a.root = root
	if t != nil && a.rootType == nil {
		a.rootType = t
	}
	a.logger.Printf("[%s] pass %d after: %s", a.tag, a.passes, a.root)
	return p, nil
}

func (a *Analyzer) unresolved(p *pass) error {
	if p == nil || len(p.deferred) == 0 {
		return newError(UnresolvedType, a.root, "no type for %s", a.root)
	}
	n := p.deferred[0]
	err := newError(UnresolvedType, n, "no type for %s", describeNode(n))
	err.Path = ast.PathTo(p.start, n)
	return err
}

func (a *Analyzer) annotate(id int, t types.Type) {
	if id != 0 {
		a.types[id] = t
	}
}

type substitution struct {
	old ast.Expr
	typ types.Type
}

// pass holds the state of one top-down visit: the substitutions made so
// far and the nodes that had to be deferred, innermost first.
type pass struct {
	a        *Analyzer
	start    ast.Expr
	log      []substitution
	deferred []ast.Expr
}

// current returns n as it now appears in the tree, after the rewrites its
// descendants went through.
func (p *pass) current(n ast.Expr) ast.Expr {
	for _, s := range p.log {
		n = ast.Substitute(n, s.old, &ast.Typed{Type: s.typ})
	}
	return n
}

// resolve substitutes t for every occurrence of n in root.
func (p *pass) resolve(root, n ast.Expr, t types.Type) ast.Expr {
	cur := p.current(n)
	p.log = append(p.log, substitution{old: cur, typ: t})
	return ast.SubstituteFunc(root, cur, func(m ast.Expr) ast.Expr {
		p.a.annotate(m.ID(), t)
		return &ast.Typed{BaseNode: ast.BaseNode{At: m.Pos()}, Type: t, Of: m.ID()}
	})
}

func (p *pass) deferNode(root, n ast.Expr) (ast.Expr, types.Type, error) {
	p.deferred = append(p.deferred, n)
	return root, nil, nil
}

// visit returns the tree after n was visited and the type of n. A nil type
// without error means n is deferred to the next pass.
func (p *pass) visit(root, n ast.Expr, expected types.Type) (ast.Expr, types.Type, error) {
	switch v := n.(type) {
	case *ast.Typed:
		if err := p.check(n, expected, v.Type); err != nil {
			return root, nil, err
		}
		return root, v.Type, nil
	case *ast.Lambda:
		return p.visitLambda(root, v)
	case *ast.Var:
		return p.visitVar(root, v, expected)
	case *ast.Literal:
		return p.visitLiteral(root, v, expected)
	case *ast.Map:
		return p.visitMap(root, v, expected)
	case *ast.Zip:
		return p.visitTuple(root, v, v.Name(), v.Args, expected)
	case *ast.Product:
		return p.visitTuple(root, v, v.Name(), v.Args, expected)
	case *ast.Reduce:
		return p.visitReduce(root, v, expected)
	case *ast.Call:
		return p.visitCall(root, v, expected)
	case *ast.FuncRef:
		return root, nil, newError(TypeMismatch, v, "function %s used as a value", v.Name)
	default:
		return root, nil, newError(TypeMismatch, n, "unexpected node %s", n)
	}
}

func (p *pass) check(n ast.Expr, expected, got types.Type) error {
	if expected != nil && !types.Equal(expected, got) {
		return wrapError(TypeMismatch, n, types.ErrTypeMismatch, "%s is %s, expected %s", describeNode(n), got, expected)
	}
	return nil
}

func (p *pass) visitLambda(root ast.Expr, l *ast.Lambda) (ast.Expr, types.Type, error) {
	root, t, err := p.visit(root, l.Body, nil)
	if err != nil {
		return root, nil, err
	}
	for _, prm := range l.Params {
		if pt := p.a.env.Get(prm.Name, Value); pt != nil {
			p.a.annotate(prm.ID(), pt)
		}
	}
	if t == nil {
		return p.deferNode(root, l)
	}
	if l == p.start {
		p.a.rootType = t
	}
	p.a.annotate(l.ID(), t)
	return root, t, nil
}

func (p *pass) visitVar(root ast.Expr, v *ast.Var, expected types.Type) (ast.Expr, types.Type, error) {
	if expected == nil {
		return root, nil, newError(MissingExpectedType, v, "nothing gives a type to %s", v.Name)
	}
	if err := p.a.env.Set(v.Name, Value, expected); err != nil {
		return root, nil, at(err, v)
	}
	p.a.annotate(v.ID(), expected)
	return root, expected, nil
}

// A literal takes the scalar expected from its context, else the default.
func (p *pass) visitLiteral(root ast.Expr, l *ast.Literal, expected types.Type) (ast.Expr, types.Type, error) {
	var t types.Type = p.a.env.Default()
	if s, ok := expected.(types.ScalarType); ok && s.Rank == 0 {
		t = s
	}
	if err := p.check(l, expected, t); err != nil {
		return root, nil, err
	}
	p.a.annotate(l.ID(), t)
	return root, t, nil
}

// signature returns the domain tuple and codomain recorded for a function,
// ok is false when either is still unknown.
func (p *pass) signature(fn ast.Expr) (dom types.TupleType, cod types.Type, ok bool, err error) {
	name := ast.FuncName(fn)
	d, c := p.a.env.Get(name, Domain), p.a.env.Get(name, Codomain)
	if d == nil || c == nil {
		return dom, nil, false, nil
	}
	dom, err = types.AsTuple(d)
	if err != nil {
		return dom, nil, false, wrapError(TypeMismatch, fn, err, "domain of %s", name)
	}
	return dom, c, true, nil
}

func (p *pass) visitMap(root ast.Expr, m *ast.Map, expected types.Type) (ast.Expr, types.Type, error) {
	dom, cod, ok, err := p.signature(m.Func)
	if err != nil {
		return root, nil, err
	}
	if !ok {
		return p.deferNode(root, m)
	}
	if m.Tensor {
		arity, ok := tupleArity(m.Target)
		if _, isZip := m.Target.(*ast.Zip); isZip || !ok {
			return root, nil, newError(TypeMismatch, m, "%s maps over a product, got %s", m.Name(), m.Target)
		}
		dom = types.WithRank(dom, arity-1).(types.TupleType)
		cod = types.WithRank(cod, arity-1)
	}
	listDom, listCod := types.List(domainElement(dom, m.Target)), types.List(cod)
	if err := p.check(m, expected, listCod); err != nil {
		return root, nil, err
	}
	root, t, err := p.visit(root, m.Target, listDom)
	if err != nil {
		return root, nil, err
	}
	if t == nil {
		return p.deferNode(root, m)
	}
	if err := p.check(m.Target, listDom, t); err != nil {
		return root, nil, err
	}
	return p.resolve(root, m, listCod), listCod, nil
}

func (p *pass) visitTuple(root, n ast.Expr, name string, args []ast.Expr, expected types.Type) (ast.Expr, types.Type, error) {
	if expected == nil {
		return root, nil, newError(MissingExpectedType, n, "%s needs the type of its elements", name)
	}
	tt, err := types.ListOfTuple(expected)
	if err != nil {
		return root, nil, wrapError(TypeMismatch, n, err, "%s", name)
	}
	if tt.Len() != len(args) {
		return root, nil, newError(ArityMismatch, n, "%s has %d arguments, expected %d", name, len(args), tt.Len())
	}
	deferred := false
	for i, arg := range args {
		var t types.Type
		root, t, err = p.visit(root, arg, types.List(tt.Elts[i]))
		if err != nil {
			return root, nil, err
		}
		deferred = deferred || t == nil
	}
	if deferred {
		return p.deferNode(root, n)
	}
	return p.resolve(root, n, expected), expected, nil
}

func (p *pass) visitReduce(root ast.Expr, r *ast.Reduce, expected types.Type) (ast.Expr, types.Type, error) {
	name := ast.FuncName(r.Op)
	if name == "" || !strings.ContainsRune(types.Prefixes, rune(name[0])) {
		return root, nil, newError(PrecisionTagError, r.Op, "%s does not start with one of %s", name, types.Prefixes)
	}
	dom, cod, ok, err := p.signature(r.Op)
	if err != nil {
		return root, nil, err
	}
	if !ok {
		return p.deferNode(root, r)
	}
	if arity, ok := tupleArity(r.Target); ok && arity != dom.Len() {
		return root, nil, newError(ArityMismatch, r, "%s takes %d arguments, target yields %d", name, dom.Len(), arity)
	}
	if err := p.check(r, expected, cod); err != nil {
		return root, nil, err
	}
	listDom := types.List(domainElement(dom, r.Target))
	root, t, err := p.visit(root, r.Target, listDom)
	if err != nil {
		return root, nil, err
	}
	if t == nil {
		return p.deferNode(root, r)
	}
	if arity := types.Arity(t); arity != dom.Len() {
		return root, nil, newError(ArityMismatch, r, "%s takes %d arguments, target yields %d", name, dom.Len(), arity)
	}
	if err := p.check(r.Target, listDom, t); err != nil {
		return root, nil, err
	}
	return p.resolve(root, r, cod), cod, nil
}

func (p *pass) visitCall(root ast.Expr, c *ast.Call, expected types.Type) (ast.Expr, types.Type, error) {
	name := ast.FuncName(c.Func)
	if !p.a.env.PreTyped(name) {
		return root, nil, newError(UnknownIdentifier, c, "%s has no signature", name)
	}
	dom, cod, ok, err := p.signature(c.Func)
	if err != nil {
		return root, nil, err
	}
	if !ok {
		return p.deferNode(root, c)
	}
	if dom.Len() != len(c.Args) {
		return root, nil, newError(ArityMismatch, c, "%s takes %d arguments, got %d", name, dom.Len(), len(c.Args))
	}
	if err := p.check(c, expected, cod); err != nil {
		return root, nil, err
	}
	deferred := false
	for i, arg := range c.Args {
		var t types.Type
		root, t, err = p.visit(root, arg, dom.Elts[i])
		if err != nil {
			return root, nil, err
		}
		deferred = deferred || t == nil
	}
	if deferred {
		return p.deferNode(root, c)
	}
	return p.resolve(root, c, cod), cod, nil
}

// tupleArity is the number of sequences a zip or product target combines.
func tupleArity(target ast.Expr) (int, bool) {
	switch t := target.(type) {
	case *ast.Zip:
		return len(t.Args), true
	case *ast.Product:
		return len(t.Args), true
	case *ast.Typed:
		if tt, err := types.ListOfTuple(t.Type); err == nil {
			return tt.Len(), true
		}
	}
	return 0, false
}

// domainElement is the element type a function consumes from target: the
// whole tuple when the target yields tuples, else a one-element domain is
// unwrapped.
func domainElement(dom types.TupleType, target ast.Expr) types.Type {
	if _, ok := tupleArity(target); ok || dom.Len() != 1 {
		return dom
	}
	return dom.Elts[0]
}

func at(err error, n ast.Expr) error {
	var aerr *AnalysisError
	if errors.As(err, &aerr) && aerr.Node == nil {
		aerr.Node = n
	}
	return err
}
