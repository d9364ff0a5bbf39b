package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
)

var (
	formatPlaceholder = regexp.MustCompile(`@(\d+)@`)
	fstringVariable   = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)@`)
)

// isTerminating reports whether control never continues past s.
func isTerminating(s ast.Node) bool {
	call, ok := s.(*ast.FunctionExpression)
	return ok && (call.ID.Name == "error" || call.ID.Name == "subdir_done")
}

func (r *run) checkNoEffect(s ast.Node) {
	noEffect := false
	switch s := s.(type) {
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.ArrayLiteral, *ast.DictionaryLiteral:
		noEffect = true
	case *ast.FunctionExpression:
		noEffect = r.reg.Known(registry.PureFunctions, s.ID.Name)
	case *ast.MethodExpression:
		if fn, ok := r.sink.Call(s); ok {
			noEffect = r.reg.Known(registry.PureMethods, fn.ID())
		}
	}
	if noEffect {
		r.sink.Warning(s, "statement does not have an effect or the result to the call is unused")
	}
}

// checkIdentifier reports bound names mixing upper and lower case.
func (r *run) checkIdentifier(id *ast.IdExpression) {
	if r.in.Analysis.DisableNameLinting {
		return
	}
	var upper, lower bool
	for _, c := range id.Name {
		upper = upper || unicode.IsUpper(c)
		lower = lower || unicode.IsLower(c)
	}
	if upper && lower {
		r.sink.Warning(id, "expected snake case")
	}
}

func (r *run) reportUnused(ids []*ast.IdExpression) {
	for _, id := range ids {
		if r.provides[id.Name] {
			continue
		}
		if as, ok := id.Parent().(*ast.AssignmentStatement); ok {
			if call, ok := as.RHS.(*ast.FunctionExpression); ok && call.ID.Name == "declare_dependency" {
				continue
			}
		}
		r.sink.Warning(id, "unused assignment")
	}
}

// checkWellKnownComparison warns when the result of an identification
// method is compared with a string it can never return.
func (r *run) checkWellKnownComparison(me *ast.MethodExpression, sl *ast.StringLiteral) {
	opts := r.in.Analysis
	if opts.DisableAllIDLinting {
		return
	}
	fn, ok := r.sink.Call(me)
	if !ok {
		return
	}
	var (
		set      registry.NameSet
		disabled bool
		msg      string
	)
	switch fn.ID() {
	case "compiler.get_id":
		set, disabled, msg = registry.CompilerIDs, opts.DisableCompilerIDLinting, "unknown compiler id"
	case "compiler.get_argument_syntax":
		set, disabled, msg = registry.ArgumentSyntaxes, opts.DisableCompilerArgumentIDLinting, "unknown compiler argument syntax"
	case "compiler.get_linker_id":
		set, disabled, msg = registry.LinkerIDs, opts.DisableLinkerIDLinting, "unknown linker id"
	case "build_machine.cpu_family":
		set, disabled, msg = registry.CPUFamilies, opts.DisableCPUFamilyLinting, "unknown cpu family"
	case "build_machine.system":
		set, disabled, msg = registry.OSNames, opts.DisableOSFamilyLinting, "unknown operating system name"
	default:
		return
	}
	if !disabled && !r.reg.Known(set, sl.Value) {
		r.sink.Warning(sl, msg)
	}
}

// checkFormat validates the @N@ placeholders of a literal str.format() call.
func (r *run) checkFormat(sl *ast.StringLiteral, args []ast.Node) {
	for i, a := range args {
		if !strings.Contains(sl.Value, "@"+strconv.Itoa(i)+"@") {
			r.sink.Warning(a, "unused parameter in format() call")
		}
	}
	seen := make(map[int]bool)
	var outOfBounds []int
	for _, m := range formatPlaceholder.FindAllStringSubmatch(sl.Value, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < len(args) || seen[idx] {
			continue
		}
		seen[idx] = true
		outOfBounds = append(outOfBounds, idx)
	}
	if len(outOfBounds) == 0 {
		if len(args) == 0 {
			r.sink.Warning(sl.Parent(), "pointless str.format() call")
		}
		return
	}
	sort.Ints(outOfBounds)
	params := make([]string, len(outOfBounds))
	for i, idx := range outOfBounds {
		params[i] = fmt.Sprintf("@%d@", idx)
	}
	r.sink.Error(sl, "parameters out of bounds: "+strings.Join(params, ", "))
}

// checkFormatString reports f-string placeholders naming unknown variables
// and counts the others as uses.
func (r *run) checkFormatString(sl *ast.StringLiteral) {
	for _, m := range fstringVariable.FindAllStringSubmatch(sl.Value, -1) {
		name := m[1]
		r.markUsed(name)
		if !r.scope.Has(name) && !r.ignored(name) {
			r.sink.Error(sl, "unknown identifier `"+name+"` in format string")
		}
	}
}
