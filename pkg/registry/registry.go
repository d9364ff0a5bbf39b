// Package registry holds the static catalogue of builtin functions, methods,
// object types, deprecations and well-known names of the build language. A
// Registry is immutable after loading and safe for concurrent use.
package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mesonlint/mesonlint/pkg/types"
)

// Param is a positional parameter.
type Param struct {
	Types    types.Set
	Optional bool
	Varargs  bool
}

// Kwarg is a keyword parameter.
type Kwarg struct {
	Types    types.Set
	Required bool
}

// Function describes a builtin function, or a method when Receiver is set.
type Function struct {
	Name     string
	Receiver string
	Params   []Param
	Kwargs   map[string]Kwarg
	Returns  types.Set
}

// ID returns the fully qualified name, e.g. "str.format" or "executable".
func (f *Function) ID() string {
	if f.Receiver == "" {
		return f.Name
	}
	return f.Receiver + "." + f.Name
}

// MinPosArgs returns the number of required positional arguments.
func (f *Function) MinPosArgs() int {
	n := 0
	for _, p := range f.Params {
		if !p.Optional && !p.Varargs {
			n++
		}
	}
	return n
}

// MaxPosArgs returns the maximum number of positional arguments, or
// math.MaxInt for variadic functions.
func (f *Function) MaxPosArgs() int {
	for _, p := range f.Params {
		if p.Varargs {
			return math.MaxInt
		}
	}
	return len(f.Params)
}

// PosArg returns the parameter the i-th positional argument binds to.
func (f *Function) PosArg(i int) (Param, bool) {
	if i < len(f.Params) {
		return f.Params[i], true
	}
	if n := len(f.Params); n > 0 && f.Params[n-1].Varargs {
		return f.Params[n-1], true
	}
	return Param{}, false
}

func (f *Function) HasKwarg(name string) bool {
	_, ok := f.Kwargs[name]
	return ok
}

// RequiredKwargs returns the names of required keyword parameters, sorted.
func (f *Function) RequiredKwargs() []string {
	var out []string
	for name, kw := range f.Kwargs {
		if kw.Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Signature renders the function in the notation of the builtin data file.
func (f *Function) Signature() string {
	var parts []string
	for _, p := range f.Params {
		s := types.Join(p.Types)
		switch {
		case p.Varargs:
			s += "..."
		case p.Optional:
			s += "?"
		}
		parts = append(parts, s)
	}
	names := make([]string, 0, len(f.Kwargs))
	for name := range f.Kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kw := f.Kwargs[name]
		s := name + ": " + types.Join(kw.Types)
		if kw.Required {
			s += "!"
		}
		parts = append(parts, s)
	}
	ret := "void"
	if len(f.Returns) > 0 {
		ret = types.Join(f.Returns)
	}
	return fmt.Sprintf("%s(%s) -> %s", f.ID(), strings.Join(parts, ", "), ret)
}

// OptionKind is the declared kind of a project option.
type OptionKind string

const (
	OptionString  OptionKind = "string"
	OptionInt     OptionKind = "int"
	OptionBool    OptionKind = "bool"
	OptionFeature OptionKind = "feature"
	OptionCombo   OptionKind = "combo"
	OptionArray   OptionKind = "array"
)

// Option is a build option, either builtin or declared by the project.
type Option struct {
	Name       string     `yaml:"name" json:"name" validate:"required"`
	Kind       OptionKind `yaml:"kind" json:"kind" validate:"required,oneof=string int bool feature combo array"`
	Deprecated bool       `yaml:"deprecated" json:"deprecated"`
}

// Deprecation marks a function, method or keyword (written "<name>") as
// deprecated from a version on.
type Deprecation struct {
	Name         string
	Since        *semver.Version
	Alternatives []string
}

// NameSet selects one of the well-known string sets.
type NameSet int

const (
	PureFunctions NameSet = iota
	PureMethods
	CompilerIDs
	ArgumentSyntaxes
	LinkerIDs
	CPUFamilies
	OSNames
)

// Registry is the loaded catalogue.
type Registry struct {
	types        map[string]types.Type
	globals      map[string]types.Set
	functions    map[string]*Function
	methods      map[string]map[string]*Function
	deprecations map[string]Deprecation
	options      map[string]Option
	names        map[NameSet]map[string]bool
}

// Type returns a named type. Primitive and container names resolve too.
func (r *Registry) Type(name string) (types.Type, bool) {
	switch name {
	case "any":
		return types.Any, true
	case "bool":
		return types.Bool, true
	case "int":
		return types.Int, true
	case "str":
		return types.Str, true
	case "disabler":
		return types.Disabler, true
	case "custom_idx":
		return types.CustomTargetIndex, true
	case "list":
		return types.List(types.Any), true
	case "dict":
		return types.Dict(types.Any), true
	case "subproject":
		return types.Subproject(), true
	}
	t, ok := r.types[name]
	return t, ok
}

// Globals returns the predefined variables, such as meson and host_machine.
func (r *Registry) Globals() map[string]types.Set {
	out := make(map[string]types.Set, len(r.globals))
	for k, v := range r.globals {
		out[k] = v
	}
	return out
}

// LookupFunction finds a global function.
func (r *Registry) LookupFunction(name string) (*Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// LookupMethod finds a method on t, walking the parent chain of objects.
func (r *Registry) LookupMethod(t types.Type, name string) (*Function, bool) {
	for {
		if m, ok := r.methods[t.Name()][name]; ok {
			return m, true
		}
		p, ok := t.Parent()
		if !ok {
			return nil, false
		}
		t = p
	}
}

// LookupMethodByReceiver finds a method by receiver name without walking parents.
func (r *Registry) LookupMethodByReceiver(receiver, name string) (*Function, bool) {
	m, ok := r.methods[receiver][name]
	return m, ok
}

// GuessMethod finds any method called name, preferring receivers in
// lexical order so the choice is stable.
func (r *Registry) GuessMethod(name string) (*Function, bool) {
	for _, recv := range r.Receivers() {
		if m, ok := r.methods[recv][name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Receivers returns the names of all types with methods, sorted.
func (r *Registry) Receivers() []string {
	out := make([]string, 0, len(r.methods))
	for recv := range r.methods {
		out = append(out, recv)
	}
	sort.Strings(out)
	return out
}

// Functions returns all global functions sorted by name.
func (r *Registry) Functions() []*Function {
	out := make([]*Function, 0, len(r.functions))
	for _, f := range r.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Methods returns the methods declared directly on receiver, sorted by name.
func (r *Registry) Methods(receiver string) []*Function {
	out := make([]*Function, 0, len(r.methods[receiver]))
	for _, m := range r.methods[receiver] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deprecated reports whether name is deprecated at version v and returns the
// suggested alternatives.
func (r *Registry) Deprecated(name string, v *semver.Version) ([]string, bool) {
	d, ok := r.deprecations[name]
	if !ok || v == nil || v.LessThan(d.Since) {
		return nil, false
	}
	return d.Alternatives, true
}

// BuiltinOption returns a builtin build option.
func (r *Registry) BuiltinOption(name string) (Option, bool) {
	o, ok := r.options[name]
	return o, ok
}

// OptionTypes returns the value types get_option() yields for o.
func (r *Registry) OptionTypes(o Option) types.Set {
	switch o.Kind {
	case OptionString, OptionCombo:
		return types.Set{types.Str}
	case OptionInt:
		return types.Set{types.Int}
	case OptionBool:
		return types.Set{types.Bool}
	case OptionFeature:
		if t, ok := r.types["feature"]; ok {
			return types.Set{t}
		}
		return types.Set{types.Any}
	}
	return types.Set{types.List(types.Str)}
}

// Known reports whether value is in the given well-known set.
func (r *Registry) Known(set NameSet, value string) bool {
	return r.names[set][value]
}
