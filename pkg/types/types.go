// Package types implements the inferred type model of the analyzer: a small
// tagged union of primitive, container, object and wildcard types plus the
// Set normalization used after every type-producing operation.
package types

import (
	"sort"
	"strings"
)

// Kind identifies the variant of a Type.
type Kind uint8

const (
	// KindAny is the wildcard type: the value could be anything.
	KindAny Kind = iota
	KindBool
	KindInt
	KindStr
	// KindDisabler is the type of disabler() values; method calls on it are no-ops.
	KindDisabler
	KindList
	KindDict
	// KindObject covers every named builtin object type (build targets, compilers, ...).
	KindObject
	// KindSubproject is a handle that may refer to one of several subprojects.
	KindSubproject
	// KindCustomTargetIndex is the result of subscripting a custom target.
	KindCustomTargetIndex
)

// Type is an immutable inferred type. The zero value is the any type.
type Type struct {
	kind   Kind
	name   string
	parent *Type
	elems  Set
	names  []string
}

// Primitive and special types.
var (
	Any               = Type{kind: KindAny}
	Bool              = Type{kind: KindBool}
	Int               = Type{kind: KindInt}
	Str               = Type{kind: KindStr}
	Disabler          = Type{kind: KindDisabler}
	CustomTargetIndex = Type{kind: KindCustomTargetIndex}
)

// List returns a list type whose possible element types are elems.
func List(elems ...Type) Type {
	return Type{kind: KindList, elems: Dedup(elems)}
}

// Dict returns a dict type whose possible value types are values.
// Keys are always strings.
func Dict(values ...Type) Type {
	return Type{kind: KindDict, elems: Dedup(values)}
}

// Object returns a named object type. parent, when not nil, is the supertype
// the object can be used in place of.
func Object(name string, parent *Type) Type {
	return Type{kind: KindObject, name: name, parent: parent}
}

// Subproject returns a subproject handle referring to any of names.
func Subproject(names ...string) Type {
	return Type{kind: KindSubproject, names: uniqueSorted(names)}
}

// Kind returns the variant of t.
func (t Type) Kind() Kind { return t.kind }

// Name returns the name used for method dispatch and signature matching.
func (t Type) Name() string {
	switch t.kind {
	case KindAny:
		return "any"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindDisabler:
		return "disabler"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSubproject:
		return "subproject"
	case KindCustomTargetIndex:
		return "custom_idx"
	default:
		return t.name
	}
}

// Parent returns the supertype of an object type.
func (t Type) Parent() (Type, bool) {
	if t.parent == nil {
		return Type{}, false
	}
	return *t.parent, true
}

// Elems returns the element types of a list or the value types of a dict.
func (t Type) Elems() Set { return t.elems }

// Names returns the candidate names of a subproject handle.
func (t Type) Names() []string { return t.names }

// IsWildcard reports whether t is any, or a list or dict holding exactly any.
func (t Type) IsWildcard() bool {
	switch t.kind {
	case KindAny:
		return true
	case KindList, KindDict:
		return len(t.elems) == 1 && t.elems[0].kind == KindAny
	}
	return false
}

// String formats t the way diagnostics print types, e.g. list(int|str).
func (t Type) String() string {
	switch t.kind {
	case KindList, KindDict:
		return t.Name() + "(" + Join(t.elems) + ")"
	case KindSubproject:
		return "subproject(" + strings.Join(t.names, "|") + ")"
	}
	return t.Name()
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind || t.name != o.name {
		return false
	}
	switch t.kind {
	case KindList, KindDict:
		return t.elems.Equal(o.elems)
	case KindSubproject:
		if len(t.names) != len(o.names) {
			return false
		}
		for i := range t.names {
			if t.names[i] != o.names[i] {
				return false
			}
		}
	}
	return true
}

// rank orders kinds inside a normalized Set.
func (t Type) rank() int {
	switch t.kind {
	case KindList:
		return 0
	case KindDict:
		return 1
	case KindSubproject:
		return 2
	case KindAny:
		return 3
	case KindBool:
		return 4
	case KindInt:
		return 5
	case KindStr:
		return 6
	case KindDisabler:
		return 7
	case KindCustomTargetIndex:
		return 8
	}
	return 9
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
