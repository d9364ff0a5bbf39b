package analyzer

import (
	"fmt"
	"strings"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/types"
)

// Wildcard shape bits of a method receiver.
const (
	wildAny = 1 << iota
	wildList
	wildDict
	wildAll = wildAny | wildList | wildDict
)

func (r *run) visitFunction(n *ast.FunctionExpression) {
	if n.Args != nil {
		r.visit(n.Args)
	}
	name := n.ID.Name
	fn, ok := r.reg.LookupFunction(name)
	if !ok {
		r.sink.Error(n, "unknown function `"+name+"`")
		return
	}
	args := ast.Args(n)

	if name == "subproject" {
		n.SetTypes(r.subprojectTypes(n, args))
	} else {
		n.SetTypes(r.functionTypes(fn, args))
	}
	switch name {
	case "get_variable":
		r.getVariable(n, fn, args)
	case "set_variable":
		r.setVariable(n, args)
	case "get_option":
		r.checkOption(n, args)
	case "subdir":
		r.subdir(n, args)
	}

	r.sink.RegisterCall(n, fn)
	r.checkCall(n, fn, args)
	r.registerKwargs(fn, args)
	r.checkDeprecated(fn, n.ID)
}

// functionTypes returns the result types of a call to fn. get_option()
// resolves the declared kind of a literal option name.
func (r *run) functionTypes(fn *registry.Function, args []ast.Node) types.Set {
	if fn.Name != "get_option" || len(args) == 0 {
		return fn.Returns
	}
	sl, ok := args[0].(*ast.StringLiteral)
	if !ok {
		return fn.Returns
	}
	if o, ok := r.lookupOption(sl.Value); ok {
		return r.reg.OptionTypes(o)
	}
	return fn.Returns
}

func (r *run) lookupOption(name string) (registry.Option, bool) {
	if o, ok := r.options[name]; ok {
		return o, true
	}
	return r.reg.BuiltinOption(name)
}

func (r *run) checkOption(n *ast.FunctionExpression, args []ast.Node) {
	if r.options == nil || len(args) == 0 {
		return
	}
	sl, ok := args[0].(*ast.StringLiteral)
	if !ok {
		return
	}
	o, ok := r.lookupOption(sl.Value)
	if !ok {
		r.sink.Error(n, "unknown option `"+sl.Value+"`")
		return
	}
	if o.Deprecated {
		r.sink.Warning(n, "option `"+sl.Value+"` is deprecated")
	}
}

func (r *run) getVariable(n *ast.FunctionExpression, fn *registry.Function, args []ast.Node) {
	if len(args) == 0 {
		return
	}
	var out types.Set
	if sl, ok := args[0].(*ast.StringLiteral); ok {
		if ts, ok := r.scope.Lookup(sl.Value); ok {
			out = append(out, ts...)
		} else {
			out = append(out, fn.Returns...)
		}
		r.markUsed(sl.Value)
		r.log.Debug().Str("variable", sl.Value).Str("types", types.Join(types.Dedup(out))).Msg("Resolved get_variable")
	} else {
		out = append(out, fn.Returns...)
		names := r.guessValues(args[0])
		for _, name := range names {
			ts, _ := r.scope.Lookup(name)
			out = append(out, ts...)
			r.markUsed(name)
		}
		r.log.Debug().Strs("guessed", names).Msg("Resolved imprecise get_variable")
	}
	if len(args) > 1 {
		out = append(out, args[1].Types()...)
	}
	n.SetTypes(types.Dedup(out))
}

func (r *run) setVariable(n *ast.FunctionExpression, args []ast.Node) {
	if len(args) < 2 {
		return
	}
	value := args[1].Types()
	if sl, ok := args[0].(*ast.StringLiteral); ok {
		r.bind(sl.Value, value)
		return
	}
	names := r.guessValues(args[0])
	r.log.Debug().Strs("guessed", names).Str("file", r.currentFile().Path).Msg("Guessed set_variable names")
	for _, name := range names {
		r.bind(name, value)
	}
}

func (r *run) subprojectTypes(n *ast.FunctionExpression, args []ast.Node) types.Set {
	var names []string
	if len(args) > 0 {
		names = r.guessValues(args[0])
	}
	r.log.Debug().Strs("guessed", names).Msg("Guessed subproject names")
	if r.in.Subprojects != nil && len(names) > 0 {
		known := make(map[string]bool)
		for _, s := range r.in.Subprojects.Names() {
			known[s] = true
		}
		var missing []string
		for _, name := range names {
			if !known[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			r.sink.Error(n, "unable to find subprojects ["+strings.Join(missing, ", ")+"]")
		}
	}
	return types.Set{types.Subproject(names...)}
}

// subdir analyzes the included file inline with a chained scope.
func (r *run) subdir(n *ast.FunctionExpression, args []ast.Node) {
	r.sink.RegisterSubdir(n)
	if len(args) == 0 || r.in.Tree == nil {
		return
	}
	from := r.currentFile().Path
	if sl, ok := args[0].(*ast.StringLiteral); ok {
		f, found := r.in.Tree.Lookup(ast.SubdirPath(from, sl.Value))
		if !found {
			r.sink.Error(n, "unable to find subdir "+sl.Value)
			r.log.Warn().Str("subdir", sl.Value).Str("file", from).Msg("Subdir not found")
			return
		}
		r.enterSubdir(n, f)
		return
	}
	for _, dir := range r.guessValues(args[0]) {
		if dir == "" {
			continue
		}
		f, found := r.in.Tree.Lookup(ast.SubdirPath(from, dir))
		if !found {
			r.log.Debug().Str("subdir", dir).Msg("Guessed subdir not found")
			continue
		}
		r.enterSubdir(n, f)
	}
}

func (r *run) enterSubdir(call ast.Node, f *ast.SourceFile) {
	for _, active := range r.files {
		if active == f {
			r.sink.Error(call, "recursive inclusion of "+f.Path)
			return
		}
	}
	parent := r.scope
	r.scope = NewScope(parent)
	r.visitFile(f)
	r.scope.flushInto(parent)
	r.scope = parent
}

func (r *run) visitMethod(n *ast.MethodExpression) {
	r.visit(n.Obj)
	if n.Args != nil {
		r.visit(n.Args)
	}
	name := n.ID.Name
	objTypes := n.Obj.Types()
	args := ast.Args(n)

	fn, result, shape := r.findMethod(n, name, objTypes, args)
	if fn == nil && (shape.any == len(objTypes) || (shape.bits == wildAll && len(objTypes) == 3)) {
		if guessed, ok := r.reg.GuessMethod(name); ok {
			r.log.Debug().Str("method", guessed.ID()).Str("file", r.currentFile().Path).
				Int("line", n.Range().Start.Line+1).Msg("Guessed method")
			fn = guessed
			result = append(result, guessed.Returns...)
		}
	}
	if fn == nil {
		if len(objTypes) == 1 && objTypes[0].Kind() == types.KindDisabler {
			r.log.Debug().Str("method", name).Msg("Ignoring method call on disabler")
			return
		}
		r.sink.Error(n, fmt.Sprintf("no method `%s` found for types `%s`", name, types.Join(objTypes)))
		return
	}

	n.SetTypes(types.Dedup(result))
	r.sink.RegisterCall(n, fn)
	r.checkCall(n, fn, args)
	r.registerKwargs(fn, args)
	r.checkDeprecated(fn, n.ID)
	if sl, ok := n.Obj.(*ast.StringLiteral); ok && fn.ID() == "str.format" {
		r.checkFormat(sl, args)
	}
}

type wildcardShape struct {
	any  int
	bits int
}

// findMethod resolves name against every member of the receiver types.
// Wildcard members are only counted.
func (r *run) findMethod(n *ast.MethodExpression, name string, objTypes types.Set, args []ast.Node) (*registry.Function, types.Set, wildcardShape) {
	var (
		fn     *registry.Function
		result types.Set
		shape  wildcardShape
	)
	for _, t := range objTypes {
		switch {
		case t.Kind() == types.KindAny:
			shape.any++
			shape.bits |= wildAny
			continue
		case t.Kind() == types.KindList && t.IsWildcard():
			shape.any++
			shape.bits |= wildList
			continue
		case t.Kind() == types.KindDict && t.IsWildcard():
			shape.any++
			shape.bits |= wildDict
			continue
		}
		if name == "get" {
			continue
		}
		m, ok := r.reg.LookupMethod(t, name)
		if !ok {
			continue
		}
		fn = m
		result = append(result, m.Returns...)
		if m.ID() == "subproject.get_variable" && t.Kind() == types.KindSubproject && len(args) > 0 {
			result = append(result, r.subprojectVariable(n, t, args)...)
		}
	}
	if name != "get" {
		return fn, result, shape
	}

	var key types.Set
	if len(args) > 0 {
		key = args[0].Types()
	}
	var fallback types.Set
	if len(args) > 1 {
		fallback = args[1].Types()
	}
	if l, ok := objTypes.First(types.KindList); ok && key.Has(types.KindInt) {
		m, _ := r.reg.LookupMethodByReceiver("list", "get")
		return m, elemsOr(l, m, fallback), shape
	}
	if d, ok := objTypes.First(types.KindDict); ok && key.Has(types.KindStr) {
		m, _ := r.reg.LookupMethodByReceiver("dict", "get")
		return m, elemsOr(d, m, fallback), shape
	}
	if hasObject(objTypes, "cfg_data") {
		m, _ := r.reg.LookupMethodByReceiver("cfg_data", "get")
		return m, m.Returns, shape
	}
	return fn, result, shape
}

// elemsOr returns the element types of a container, or the generic return
// types of the getter when they are unknown, plus the default value types.
func elemsOr(container types.Type, m *registry.Function, fallback types.Set) types.Set {
	elems := container.Elems()
	if len(elems) == 0 {
		elems = m.Returns
	}
	return types.Union(elems, fallback)
}

// subprojectVariable looks up the variable names passed to
// subproject.get_variable in every candidate subproject.
func (r *run) subprojectVariable(n *ast.MethodExpression, handle types.Type, args []ast.Node) types.Set {
	if r.in.Subprojects == nil {
		return nil
	}
	names := r.guessValues(args[0])
	candidates := make(map[string]bool)
	for _, c := range handle.Names() {
		candidates[c] = true
	}
	var out types.Set
	found := false
	for _, sp := range r.in.Subprojects.Names() {
		if !candidates[sp] {
			continue
		}
		vars, ok := r.in.Subprojects.Variables(sp)
		if !ok {
			continue
		}
		for _, name := range names {
			if ts, ok := vars[name]; ok {
				out = append(out, ts...)
				found = true
			}
		}
	}
	if len(names) > 0 && !found {
		r.sink.Error(n, "unable to find variables called ["+strings.Join(names, ", ")+"] in subprojects")
	}
	return out
}

// checkCall validates arguments against the signature of fn.
func (r *run) checkCall(n ast.Node, fn *registry.Function, args []ast.Node) {
	var nPos int
	seenKw := false
	for _, a := range args {
		if _, ok := a.(*ast.KeywordItem); ok {
			seenKw = true
			continue
		}
		nPos++
		if seenKw {
			r.sink.Error(a, "unexpected positional argument after a keyword argument")
		}
	}
	if lo := fn.MinPosArgs(); nPos < lo {
		r.sink.Error(n, fmt.Sprintf("expected %d positional arguments, but got %d", lo, nPos))
	}
	if hi := fn.MaxPosArgs(); nPos > hi {
		r.sink.Error(n, fmt.Sprintf("expected %d positional arguments, but got %d", hi, nPos))
	}
	r.checkKwargs(n, fn, args)
	r.checkArgTypes(fn, args)
}

func (r *run) checkKwargs(n ast.Node, fn *registry.Function, args []ast.Node) {
	used := make(map[string]bool)
	for _, a := range args {
		kw, ok := a.(*ast.KeywordItem)
		if !ok || kw.KeyName() == "" {
			continue
		}
		key := kw.KeyName()
		if used[key] {
			r.sink.Warning(kw, "duplicate keyword argument "+key)
			continue
		}
		used[key] = true
		if key != "kwargs" && !fn.HasKwarg(key) {
			r.sink.Error(kw, "unknown keyword argument '"+key+"'")
		}
	}
	if used["kwargs"] {
		return
	}
	for _, req := range fn.RequiredKwargs() {
		if !used[req] {
			r.sink.Error(n, "missing required keyword argument '"+req+"'")
		}
	}
}

func (r *run) checkArgTypes(fn *registry.Function, args []ast.Node) {
	pos := 0
	for _, a := range args {
		if kw, ok := a.(*ast.KeywordItem); ok {
			if spec, ok := fn.Kwargs[kw.KeyName()]; ok && kw.Value != nil {
				r.checkTypes(kw, spec.Types, kw.Value.Types())
			}
			continue
		}
		if p, ok := fn.PosArg(pos); ok {
			r.checkTypes(a, p.Types, a.Types())
		}
		pos++
	}
}

func (r *run) checkTypes(arg ast.Node, expected, given types.Set) {
	if types.AtLeastPartiallyCompatible(given, expected) {
		return
	}
	r.sink.Error(arg, fmt.Sprintf("expected %s, got %s", types.Join(expected), types.Join(given)))
}

func (r *run) registerKwargs(fn *registry.Function, args []ast.Node) {
	for _, a := range args {
		if kw, ok := a.(*ast.KeywordItem); ok {
			r.sink.RegisterKwarg(kw, fn)
		}
	}
}

func (r *run) checkDeprecated(fn *registry.Function, at ast.Node) {
	if alts, ok := r.reg.Deprecated(fn.ID(), r.version); ok {
		r.sink.Warning(at, fn.ID()+" is deprecated. Use one of these: "+strings.Join(alts, ", "))
	}
}

func (r *run) checkKeywordDeprecation(kw *ast.KeywordItem) {
	name := kw.KeyName()
	if name == "" || kw.Key == nil {
		return
	}
	if alts, ok := r.reg.Deprecated("<"+name+">", r.version); ok {
		names := make([]string, len(alts))
		for i, alt := range alts {
			names[i] = strings.Trim(alt, "<>")
		}
		r.sink.Warning(kw.Key, "keyword "+name+" is deprecated. Use one of these: "+strings.Join(names, ", "))
	}
}
