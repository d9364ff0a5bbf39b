package types

import (
	"sort"
	"strings"
)

// Set is a union of possible types. Sets produced by Dedup are normalized:
// at most one list, one dict and one subproject handle, no duplicate
// primitives or objects, and a canonical order.
type Set []Type

// Dedup normalizes a union. All list members are merged into one list whose
// elements are the deduplicated union of their elements; dicts and subproject
// handles are merged the same way. It is idempotent and order independent.
func Dedup(in Set) Set {
	if len(in) == 0 {
		return nil
	}
	var (
		listElems, dictElems Set
		subprojectNames      []string
		gotList, gotDict     bool
		gotSubproject        bool
		flags                = make(map[Kind]bool)
		objects              = make(map[string]Type)
	)
	for _, t := range in {
		switch t.kind {
		case KindList:
			gotList = true
			listElems = append(listElems, t.elems...)
		case KindDict:
			gotDict = true
			dictElems = append(dictElems, t.elems...)
		case KindSubproject:
			gotSubproject = true
			subprojectNames = append(subprojectNames, t.names...)
		case KindObject:
			if _, ok := objects[t.name]; !ok {
				objects[t.name] = t
			}
		default:
			flags[t.kind] = true
		}
	}

	out := make(Set, 0, len(in))
	if gotList {
		out = append(out, Type{kind: KindList, elems: Dedup(listElems)})
	}
	if gotDict {
		out = append(out, Type{kind: KindDict, elems: Dedup(dictElems)})
	}
	if gotSubproject {
		out = append(out, Type{kind: KindSubproject, names: uniqueSorted(subprojectNames)})
	}
	for _, k := range []Kind{KindAny, KindBool, KindInt, KindStr, KindDisabler, KindCustomTargetIndex} {
		if flags[k] {
			out = append(out, Type{kind: k})
		}
	}
	names := make([]string, 0, len(objects))
	for n := range objects {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out = append(out, objects[n])
	}
	return out
}

// Union concatenates sets and normalizes the result.
func Union(sets ...Set) Set {
	var all Set
	for _, s := range sets {
		all = append(all, s...)
	}
	return Dedup(all)
}

// Join renders the members of s sorted and separated by '|'.
func Join(s Set) string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// Equal reports whether two sets hold the same members, ignoring order.
func (s Set) Equal(o Set) bool {
	a, b := Dedup(s), Dedup(o)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Has reports whether s contains a member of kind k.
func (s Set) Has(k Kind) bool {
	for _, t := range s {
		if t.kind == k {
			return true
		}
	}
	return false
}

// First returns the first member of kind k.
func (s Set) First(k Kind) (Type, bool) {
	for _, t := range s {
		if t.kind == k {
			return t, true
		}
	}
	return Type{}, false
}

// Compatible reports whether a value of type given may be passed where
// expected is declared. Object subtypes match their supertypes. Lists and
// dicts match when their element sets are partially compatible. A scalar
// matches a list of a compatible element type and a list matches a scalar
// when its elements do, because the build language flattens arguments.
func Compatible(given, expected Type) bool {
	if given.kind != KindList && given.kind != KindDict && given.Equal(expected) {
		return true
	}
	if given.kind == KindObject {
		for p := given.parent; p != nil; p = p.parent {
			if Compatible(*p, expected) {
				return true
			}
		}
	}
	if given.kind == KindList && expected.kind == KindList {
		return AtLeastPartiallyCompatible(given.elems, expected.elems)
	}
	if expected.kind == KindList && AtLeastPartiallyCompatible(Set{given}, expected.elems) {
		return true
	}
	if given.kind == KindList && AtLeastPartiallyCompatible(given.elems, Set{expected}) {
		return true
	}
	if given.kind == KindDict && expected.kind == KindDict {
		return AtLeastPartiallyCompatible(given.elems, expected.elems)
	}
	return false
}

// AtLeastPartiallyCompatible is the permissive union check used for
// argument validation: an empty given set is unknown and accepted, any and
// disabler members are accepted, otherwise some given member must be
// compatible with some expected member or some expected member is any.
func AtLeastPartiallyCompatible(given, expected Set) bool {
	if len(given) == 0 {
		return true
	}
	for _, g := range given {
		if g.kind == KindAny || g.kind == KindDisabler {
			return true
		}
		for _, e := range expected {
			if e.kind == KindAny || Compatible(g, e) {
				return true
			}
		}
	}
	return false
}
