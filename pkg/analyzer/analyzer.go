// Package analyzer infers the possible types of every expression in a build
// file tree, validates calls against the builtin registry and reports
// diagnostics. One Analyze call is a single synchronous depth-first walk; it
// never fails; rule violations become diagnostics.
package analyzer

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/types"
)

// Analyzer holds the state shared by all runs. It is safe for concurrent use.
type Analyzer struct {
	reg *registry.Registry
	log zerolog.Logger
}

// New creates an analyzer over the given registry.
func New(reg *registry.Registry, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		reg: reg,
		log: logger.With().Str("component", "analyzer").Logger(),
	}
}

// Registry returns the registry the analyzer validates against.
func (a *Analyzer) Registry() *registry.Registry { return a.reg }

// Result is the output of one run.
type Result struct {
	Sink *diagnostics.Sink
	// Scope holds the root scope bindings after the walk, including
	// variables assigned in included subdirectories.
	Scope map[string]types.Set
	// Version is the parsed meson_version of the project() call, if any.
	Version *semver.Version
}

// Analyze walks in.Tree and returns the diagnostics and annotations. Node
// type slots of the tree are overwritten.
func (a *Analyzer) Analyze(in Input) *Result {
	r := &run{
		Analyzer: a,
		in:       in,
		sink:     diagnostics.NewSink(),
		scope:    NewScope(nil),
		provides: make(map[string]bool, len(in.Provides)),
	}
	for name, ts := range a.reg.Globals() {
		r.scope.Set(name, ts)
	}
	for _, p := range in.Provides {
		r.provides[p] = true
	}
	if in.Options != nil {
		r.options = make(map[string]registry.Option, len(in.Options))
		for _, o := range in.Options {
			r.options[o.Name] = o
		}
	}

	res := &Result{Sink: r.sink}
	if in.Tree != nil && in.Tree.Root != nil {
		r.visitFile(in.Tree.Root)
	}
	res.Scope = r.scope.Flatten()
	res.Version = r.version
	return res
}

// run is the mutable state of a single analysis.
type run struct {
	*Analyzer
	in       Input
	sink     *diagnostics.Sink
	scope    *Scope
	options  map[string]registry.Option
	provides map[string]bool
	version  *semver.Version

	// pending holds, per open selection statement, the types assigned to
	// each name in any of its branches.
	pending []map[string]types.Set
	// overridden holds, per open selection statement, the type a name had
	// before the statement first reassigned it.
	overridden []map[string]types.Set

	ignoreUnknown []string
	needingUse    [][]*ast.IdExpression
	files         []*ast.SourceFile
}

func (r *run) currentFile() *ast.SourceFile {
	if len(r.files) == 0 {
		return nil
	}
	return r.files[len(r.files)-1]
}

func (r *run) visitFile(f *ast.SourceFile) {
	r.files = append(r.files, f)
	r.needingUse = append(r.needingUse, nil)
	root := len(r.files) == 1

	if f.Body != nil {
		if root {
			r.checkProjectCall(f.Body)
		}
		r.statements(f.Body.Stmts)
	} else if root {
		r.sink.Error(f, "missing project() call at top of file")
	}

	r.files = r.files[:len(r.files)-1]
	unused := r.needingUse[len(r.needingUse)-1]
	r.needingUse = r.needingUse[:len(r.needingUse)-1]
	if len(r.files) > 0 {
		r.needingUse[len(r.needingUse)-1] = append(r.needingUse[len(r.needingUse)-1], unused...)
		return
	}
	r.reportUnused(unused)
}

// checkProjectCall validates the first statement of the root file and reads
// meson_version from it.
func (r *run) checkProjectCall(body *ast.BuildDefinition) {
	if len(body.Stmts) == 0 {
		r.sink.Error(body, "missing project() call at top of file")
		return
	}
	call, ok := body.Stmts[0].(*ast.FunctionExpression)
	if !ok || call.ID.Name != "project" {
		r.sink.Error(body.Stmts[0], "first statement is not a project() call")
		return
	}
	for _, arg := range ast.Args(call) {
		kw, ok := arg.(*ast.KeywordItem)
		if !ok || kw.KeyName() != "meson_version" {
			continue
		}
		sl, ok := kw.Value.(*ast.StringLiteral)
		if !ok {
			continue
		}
		v, err := parseVersionConstraint(sl.Value)
		if err != nil {
			r.log.Warn().Err(err).Str("meson_version", sl.Value).Msg("Unable to parse meson_version")
			return
		}
		r.version = v
		r.log.Info().Str("version", v.String()).Msg("Parsed meson_version")
		return
	}
}

// parseVersionConstraint extracts the version of a constraint such as
// ">=0.56.0".
func parseVersionConstraint(s string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimLeft(s, "<>=!~^ "))
}

// statements visits a statement list and runs the statement-level lints.
func (r *run) statements(stmts []ast.Node) {
	var terminated bool
	var firstDead, lastDead ast.Node
	for _, s := range stmts {
		r.visit(s)
		r.checkNoEffect(s)
		if !terminated {
			terminated = isTerminating(s)
			continue
		}
		if firstDead == nil {
			firstDead = s
		}
		lastDead = s
	}
	if firstDead != nil {
		r.sink.Span(diagnostics.SeverityWarning, firstDead, lastDead, "dead code")
	}
}

// applyToStack records an assignment in the innermost open selection
// statement.
func (r *run) applyToStack(name string, ts types.Set) {
	if len(r.pending) == 0 {
		return
	}
	top := len(r.pending) - 1
	if prev, ok := r.scope.Lookup(name); ok {
		if _, seen := r.overridden[top][name]; !seen {
			r.overridden[top][name] = prev
		}
	}
	r.pending[top][name] = types.Union(r.pending[top][name], ts)
}

// bind assigns ts to name in the current scope and the open branch frame.
func (r *run) bind(name string, ts types.Set) {
	r.applyToStack(name, ts)
	r.scope.Set(name, ts)
}

// evalStack returns every pre-branch type of name still visible through the
// open selection statements.
func (r *run) evalStack(name string) types.Set {
	frames := make([]types.Set, len(r.overridden))
	for i, frame := range r.overridden {
		frames[i] = frame[name]
	}
	return types.Union(frames...)
}

func (r *run) visitSelection(n *ast.SelectionStatement) {
	r.pending = append(r.pending, make(map[string]types.Set))
	r.overridden = append(r.overridden, make(map[string]types.Set))
	before := r.scope.Flatten()

	var left []*ast.IdExpression
	for i, block := range n.Blocks {
		ignored := false
		if i < len(n.Conditions) {
			c := n.Conditions[i]
			r.visit(c)
			ignored = r.checkCondition(c)
		}
		r.needingUse = append(r.needingUse, nil)
		r.statements(block)
		if ignored {
			r.ignoreUnknown = r.ignoreUnknown[:len(r.ignoreUnknown)-1]
		}
		left = append(left, r.needingUse[len(r.needingUse)-1]...)
		r.needingUse = r.needingUse[:len(r.needingUse)-1]
	}

	seen := make(map[string]bool)
	outer := len(r.needingUse) - 1
	for _, id := range left {
		if seen[id.Name] {
			continue
		}
		seen[id.Name] = true
		r.needingUse[outer] = append(r.needingUse[outer], id)
	}

	assigned := r.pending[len(r.pending)-1]
	r.pending = r.pending[:len(r.pending)-1]
	exhaustive := len(n.Conditions) < len(n.Blocks)
	merged := make(map[string]types.Set, len(assigned))
	for _, name := range sortedKeys(assigned) {
		current, _ := r.scope.Lookup(name)
		ts := types.Union(current, assigned[name])
		if !exhaustive {
			ts = types.Union(ts, before[name])
		}
		merged[name] = ts
	}
	r.overridden = r.overridden[:len(r.overridden)-1]
	for _, name := range sortedKeys(merged) {
		r.bind(name, merged[name])
	}
}

// checkCondition reports non-boolean conditions. It returns true when the
// condition is is_variable('name'), in which case name is added to the
// identifiers whose absence is not reported.
func (r *run) checkCondition(c ast.Node) bool {
	pushed := false
	if call, ok := c.(*ast.FunctionExpression); ok && call.ID.Name == "is_variable" {
		if args := ast.Args(call); len(args) > 0 {
			if sl, ok := args[0].(*ast.StringLiteral); ok {
				r.ignoreUnknown = append(r.ignoreUnknown, sl.Value)
				pushed = true
			}
		}
	}
	r.checkBoolean(c, c)
	return pushed
}

func (r *run) checkBoolean(cond, at ast.Node) {
	ts := cond.Types()
	if len(ts) == 0 || ts.Has(types.KindAny) || ts.Has(types.KindBool) || ts.Has(types.KindDisabler) {
		return
	}
	r.sink.Error(at, "condition is not bool: "+types.Join(ts))
}

func (r *run) visitIteration(n *ast.IterationStatement) {
	r.visit(n.Expr)
	iter := n.Expr.Types()
	ids := make([]*ast.IdExpression, 0, len(n.IDs))
	for _, id := range n.IDs {
		if ie, ok := id.(*ast.IdExpression); ok {
			ids = append(ids, ie)
		}
	}

	switch len(n.IDs) {
	case 1:
		var elems types.Set
		var errs int
		var dict bool
		for _, t := range iter {
			switch {
			case t.Kind() == types.KindObject && t.Name() == "range":
				elems = append(elems, types.Int)
			case t.Kind() == types.KindList:
				elems = append(elems, t.Elems()...)
			default:
				dict = dict || t.Kind() == types.KindDict
				errs++
			}
		}
		if errs == len(iter) {
			msg := "expression yields no iterable result"
			if dict {
				msg = "iterating over a dict requires two identifiers"
			}
			r.sink.Error(n.Expr, msg)
			elems = nil
		}
		n.IDs[0].SetTypes(types.Dedup(elems))
	case 2:
		n.IDs[0].SetTypes(types.Set{types.Str})
		if d, ok := iter.First(types.KindDict); ok {
			n.IDs[1].SetTypes(d.Elems())
		} else {
			n.IDs[1].SetTypes(nil)
			msg := "expression yields no iterable result"
			if iter.Has(types.KindList) || hasObject(iter, "range") {
				msg = "iterating over a list/range requires one identifier"
			}
			r.sink.Error(n.Expr, msg)
		}
	default:
		if len(n.IDs) > 0 {
			r.sink.Span(diagnostics.SeverityError, n.IDs[0], n.IDs[len(n.IDs)-1],
				"iteration statement expects only one or two identifiers")
		}
		ids = nil
	}
	for i := len(ids) - 1; i >= 0; i-- {
		r.bind(ids[i].Name, ids[i].Types())
		r.checkIdentifier(ids[i])
		r.sink.RegisterIdentifier(ids[i])
	}
	r.statements(n.Block)
}

func hasObject(ts types.Set, name string) bool {
	for _, t := range ts {
		if t.Kind() == types.KindObject && t.Name() == name {
			return true
		}
	}
	return false
}

// checkLoopControl reports break and continue outside of a loop body.
func (r *run) checkLoopControl(n ast.Node, keyword string) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.IterationStatement); ok {
			return
		}
		if _, ok := p.(*ast.BuildDefinition); ok {
			break
		}
	}
	r.sink.Error(n, keyword+" statements are only allowed inside loops")
}

func sortedKeys(m map[string]types.Set) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
