package analyzer

import (
	"sort"

	"github.com/mesonlint/mesonlint/pkg/types"
)

// Scope maps variable names to their possible types. Lookups fall through
// to the parent scope.
type Scope struct {
	parent *Scope
	vars   map[string]types.Set
}

// NewScope creates a scope chained to parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]types.Set)}
}

func (s *Scope) Lookup(name string) (types.Set, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if ts, ok := sc.vars[name]; ok {
			return ts, true
		}
	}
	return nil, false
}

func (s *Scope) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Set binds name in this scope.
func (s *Scope) Set(name string, ts types.Set) {
	s.vars[name] = ts
}

// Local returns the names bound directly in this scope, sorted.
func (s *Scope) Local() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Flatten returns all visible bindings, inner scopes shadowing outer ones.
func (s *Scope) Flatten() map[string]types.Set {
	out := make(map[string]types.Set)
	var chain []*Scope
	for sc := s; sc != nil; sc = sc.parent {
		chain = append(chain, sc)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			out[k] = v
		}
	}
	return out
}

// flushInto copies this scope's own bindings into its parent.
func (s *Scope) flushInto(parent *Scope) {
	for _, name := range s.Local() {
		parent.Set(name, s.vars[name])
	}
}
