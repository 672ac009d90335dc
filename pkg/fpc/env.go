package fpc

import (
	"fmt"
	"sort"
	"strings"

	"fpc/pkg/ast"
	"fpc/pkg/types"
)

// Role selects which type of an identity is looked up.
type Role int

const (
	Domain Role = iota + 1
	Codomain
	Value
)

func (r Role) String() string {
	switch r {
	case Domain:
		return "domain"
	case Codomain:
		return "codomain"
	case Value:
		return "value"
	default:
		return "unknown"
	}
}

// Env maps (identity, role) to a type. One Env serves one analysis.
type Env struct {
	def         types.ScalarType
	prefix      byte
	typed       map[string]bool // pre-typed functions
	lookupTable map[string]types.Type
}

// NewEnv seeds an environment from the registry, with the default scalar
// selected by prefix.
func NewEnv(reg *Registry, prefix byte) (*Env, error) {
	def, ok := types.FromPrefix(prefix)
	if !ok {
		return nil, newError(PrecisionTagError, nil, "prefix %q is not one of %s", prefix, types.Prefixes)
	}
	e := &Env{
		def:         def,
		prefix:      prefix,
		typed:       make(map[string]bool),
		lookupTable: make(map[string]types.Type),
	}
	for _, name := range reg.Names() {
		f, _ := reg.Lookup(name)
		if err := e.SetFunc(f); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ParsePrefix validates a precision prefix given as text, as on a command
// line.
func ParsePrefix(s string) (byte, error) {
	if len(s) != 1 || !strings.Contains(types.Prefixes, s) {
		return 0, fmt.Errorf("invalid prefix %q: expected one of %s", s, types.Prefixes)
	}
	return s[0], nil
}

// Default is the scalar chosen by the precision prefix.
func (e *Env) Default() types.ScalarType { return e.def }

func (e *Env) Prefix() byte { return e.prefix }

// PreTyped reports whether name has a known signature.
func (e *Env) PreTyped(name string) bool { return e.typed[name] }

// Label returns the key under which (name, role) is stored.
func (e *Env) Label(name string, role Role) string {
	if role == Domain && e.typed[name] {
		return name + "_args"
	}
	return name
}

// Get returns the type of (name, role), or nil when it was never set.
func (e *Env) Get(name string, role Role) types.Type {
	return e.lookupTable[e.Label(name, role)]
}

// Set records t for (name, role). Setting an equal type again is a no-op;
// a different type is a TypeMismatch.
func (e *Env) Set(name string, role Role, t types.Type) error {
	label := e.Label(name, role)
	if prev, ok := e.lookupTable[label]; ok && !types.Equal(prev, t) {
		return wrapError(TypeMismatch, nil, types.ErrTypeMismatch, "%s %s is %s, cannot be %s", name, role, prev, t)
	}
	e.lookupTable[label] = t
	return nil
}

// SetFunc marks f as pre-typed and records its domain, then its codomain.
func (e *Env) SetFunc(f types.FuncType) error {
	e.typed[f.Name] = true
	if err := e.Set(f.Name, Domain, f.Domain()); err != nil {
		return err
	}
	return e.Set(f.Name, Codomain, f.Return)
}

// BindElementals gives every elemental function root refers to, and that no
// registry entry overrides, the signature default -> default.
func (e *Env) BindElementals(root ast.Expr) error {
	var err error
	ast.Walk(root, func(n ast.Expr) bool {
		f, ok := n.(*ast.FuncRef)
		if err != nil || !ok || !IsElemental(f.Name) || e.PreTyped(f.Name) {
			return err == nil
		}
		err = e.SetFunc(types.FuncType{Name: f.Name, Params: []types.Type{e.def}, Return: e.def})
		return err == nil
	})
	return err
}

// Labels returns every key set so far, sorted.
func (e *Env) Labels() []string {
	out := make([]string, 0, len(e.lookupTable))
	for label := range e.lookupTable {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the type stored under a label as returned by Labels.
func (e *Env) Lookup(label string) types.Type { return e.lookupTable[label] }

func (e *Env) Clone() *Env {
	out := &Env{
		def:         e.def,
		prefix:      e.prefix,
		typed:       make(map[string]bool, len(e.typed)),
		lookupTable: make(map[string]types.Type, len(e.lookupTable)),
	}
	for k, v := range e.typed {
		out.typed[k] = v
	}
	for k, v := range e.lookupTable {
		out.lookupTable[k] = v
	}
	return out
}

func (e *Env) String() string {
	var b strings.Builder
	b.WriteString("============ types =============\n")
	for _, label := range e.Labels() {
		fmt.Fprintf(&b, "  %s = %s\n", label, e.lookupTable[label])
	}
	b.WriteString("================================\n")
	return b.String()
}
