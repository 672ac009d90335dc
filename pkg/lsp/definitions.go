package lsp

import (
	"sort"
	"sync"

	"github.com/sourcegraph/go-lsp"

	"fpc/pkg/ast"
)

// Definition is a named abstraction of an open document.
type Definition struct {
	Name     string
	Location lsp.Location
	Params   []string
}

// DefinitionManager indexes the definitions of every open document.
type DefinitionManager struct {
	mu          sync.RWMutex
	definitions map[string]map[string]Definition // uri -> name -> definition
}

func NewDefinitionManager() *DefinitionManager {
	return &DefinitionManager{
		definitions: make(map[string]map[string]Definition),
	}
}

// Load replaces the definitions recorded for uri with those of f, whose
// source is indexed by ls.
func (dm *DefinitionManager) Load(uri string, f *ast.File, ls lines) {
	defs := make(map[string]Definition, len(f.Defs))
	for _, d := range f.Defs {
		at := d.NamePos
		if !at.IsValid() {
			at = d.Lambda.Pos()
		}
		params := make([]string, len(d.Lambda.Params))
		for i, p := range d.Lambda.Params {
			params[i] = p.Name
		}
		defs[d.Name] = Definition{
			Name:     d.Name,
			Location: lsp.Location{URI: lsp.DocumentURI(uri), Range: ls.tokenRange(at, len(d.Name))},
			Params:   params,
		}
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.definitions[uri] = defs
}

func (dm *DefinitionManager) RemoveFile(uri string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.definitions, uri)
}

// Lookup finds a definition by name, preferring the one in uri.
func (dm *DefinitionManager) Lookup(uri, name string) (Definition, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if def, ok := dm.definitions[uri][name]; ok {
		return def, true
	}
	uris := make([]string, 0, len(dm.definitions))
	for u := range dm.definitions {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	for _, u := range uris {
		if def, ok := dm.definitions[u][name]; ok {
			return def, true
		}
	}
	return Definition{}, false
}

// Names returns the names defined across all documents, sorted and unique.
func (dm *DefinitionManager) Names() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, defs := range dm.definitions {
		for name := range defs {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
