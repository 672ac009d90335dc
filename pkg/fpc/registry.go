package fpc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"fpc/pkg/types"
	"fpc/pkg/utils"
)

// ElementalMathFunctions are applied elementwise and take the default type
// of the analysis unless the registry declares them.
var ElementalMathFunctions = []string{
	"abs", "acos", "asin", "atan", "ceil", "cos", "cosh", "exp",
	"floor", "log", "log10", "sin", "sinh", "sqrt", "tan", "tanh",
}

func IsElemental(name string) bool { return utils.InArray(name, ElementalMathFunctions) }

// Registry holds the signatures of the pre-typed functions. It is read
// only once built and may be shared between analyses.
type Registry struct {
	Prefix byte // default precision tag, 0 when the file has none
	funcs  map[string]types.FuncType
}

func NewRegistry(funcs ...types.FuncType) *Registry {
	r := &Registry{funcs: make(map[string]types.FuncType)}
	for _, f := range funcs {
		r.Add(f)
	}
	return r
}

func (r *Registry) Add(f types.FuncType) {
	r.funcs[f.Name] = f
}

func (r *Registry) Lookup(name string) (types.FuncType, bool) {
	if r == nil {
		return types.FuncType{}, false
	}
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name can be called: registered or elemental.
func (r *Registry) Known(name string) bool {
	_, ok := r.Lookup(name)
	return ok || IsElemental(name)
}

type registryFile struct {
	Prefix    string                   `yaml:"prefix,omitempty"`
	Functions map[string]signatureDecl `yaml:"functions"`
}

type signatureDecl struct {
	Args   []string `yaml:"args"`
	Result string   `yaml:"result"`
}

// LoadRegistry reads a registry file (fpc.yaml).
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	return ParseRegistry(data, path)
}

// ParseRegistry parses registry YAML. path is only used in error messages.
func ParseRegistry(data []byte, path string) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f.build(path)
}

// FindRegistry walks up from dir looking for fpc.yaml or fpc.yml.
// It returns "" when there is none.
func FindRegistry(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"fpc.yaml", "fpc.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (f *registryFile) build(path string) (*Registry, error) {
	r := NewRegistry()
	switch len(f.Prefix) {
	case 0:
	case 1:
		if _, ok := types.FromPrefix(f.Prefix[0]); !ok {
			return nil, fmt.Errorf("%s: prefix %q is not one of %s", path, f.Prefix, types.Prefixes)
		}
		r.Prefix = f.Prefix[0]
	default:
		return nil, fmt.Errorf("%s: prefix %q is not one of %s", path, f.Prefix, types.Prefixes)
	}
	names := make([]string, 0, len(f.Functions))
	for name := range f.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		decl := f.Functions[name]
		if name == "" || !isIdent(name) {
			return nil, fmt.Errorf("%s: invalid function name %q", path, name)
		}
		if isCombinator(name) {
			return nil, fmt.Errorf("%s: functions.%s: %s is a combinator", path, name, name)
		}
		if len(decl.Args) == 0 {
			return nil, fmt.Errorf("%s: functions.%s: args is required", path, name)
		}
		if decl.Result == "" {
			return nil, fmt.Errorf("%s: functions.%s: result is required", path, name)
		}
		fn := types.FuncType{Name: name}
		for i, arg := range decl.Args {
			t, err := types.Parse(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: functions.%s.args[%d]: %w", path, name, i, err)
			}
			fn.Params = append(fn.Params, t)
		}
		t, err := types.Parse(decl.Result)
		if err != nil {
			return nil, fmt.Errorf("%s: functions.%s.result: %w", path, name, err)
		}
		fn.Return = t
		r.Add(fn)
	}
	return r, nil
}

func isIdent(s string) bool {
	for i, c := range s {
		if !(c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || i > 0 && '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
