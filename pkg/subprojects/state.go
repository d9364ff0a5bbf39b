package subprojects

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mesonlint/mesonlint/pkg/analyzer"
	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/types"
)

// Spec declares one subproject of a workspace.
type Spec struct {
	Name     string
	Tree     *ast.Tree
	Options  []registry.Option
	Provides []string
}

// Analyzer is the part of *analyzer.Analyzer the resolver needs.
type Analyzer interface {
	Analyze(in analyzer.Input) *analyzer.Result
}

// Options tune Resolve. The zero value analyzes every subproject at once
// with the global tracer and a disabled logger.
type Options struct {
	Analysis analyzer.AnalysisOptions
	Limit    int
	Logger   zerolog.Logger
	Tracer   trace.Tracer
}

// State holds the outcome of resolving a set of subprojects. It implements
// analyzer.SubprojectSource.
type State struct {
	mu       sync.Mutex
	names    []string
	scopes   map[string]map[string]types.Set
	results  map[string]*analyzer.Result
	provides map[string][]string
	errs     []error
}

var _ analyzer.SubprojectSource = (*State)(nil)

func newState() *State {
	return &State{
		scopes:   make(map[string]map[string]types.Set),
		results:  make(map[string]*analyzer.Result),
		provides: make(map[string][]string),
	}
}

// Resolve analyzes every valid spec, each with its own sink, and records the
// root scope of each. Subprojects are analyzed level by level in dependency
// order; the subprojects of one level run concurrently. Invalid, cyclic or
// missing subprojects are collected as errors in the returned state. The
// returned error is only set when ctx is done before all subprojects were
// analyzed.
func Resolve(ctx context.Context, a Analyzer, specs []Spec, opts Options) (*State, error) {
	st := newState()
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("mesonlint/subprojects")
	}
	log := opts.Logger.With().Str("component", "subprojects").Logger()

	seen := make(map[string]bool, len(specs))
	var valid []Spec
	for _, s := range specs {
		switch {
		case s.Name == "":
			st.addError(NewInvalidError("", "subproject without a name").WithCode(ErrCodeEmptyName))
		case seen[s.Name]:
			st.addError(NewInvalidError(s.Name, "subproject declared twice").WithCode(ErrCodeDuplicateName))
		case s.Tree == nil || s.Tree.Root == nil:
			seen[s.Name] = true
			st.addError(NewMissingError(s.Name, "subproject has no build files").WithCode(ErrCodeNoTree))
		default:
			seen[s.Name] = true
			valid = append(valid, s)
		}
	}

	graph := NewGraph(valid)
	for _, name := range graph.Cyclic() {
		msg := "subproject dependency cycle: " + strings.Join(graph.CyclePath(name), " -> ")
		st.addError(NewInvalidError(name, msg).WithCode(ErrCodeCycle))
	}
	byName := make(map[string]Spec, len(valid))
	for _, s := range valid {
		byName[s.Name] = s
	}

	// Each level sees a frozen view of the levels before it so that
	// siblings never observe each other.
	for _, level := range graph.Levels() {
		done := st.snapshot()
		g, gctx := errgroup.WithContext(ctx)
		if opts.Limit > 0 {
			g.SetLimit(opts.Limit)
		}
		for _, name := range level {
			s := byName[name]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					st.addError(NewAnalysisError(s.Name, "analysis cancelled", err).WithCode(ErrCodeCancelled))
					return nil
				}
				_, span := tracer.Start(gctx, "subproject.analyze",
					trace.WithAttributes(attribute.String("subproject.name", s.Name)))
				defer span.End()

				res, err := analyzeOne(a, s, opts.Analysis, done)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					st.addError(err)
					log.Error().Err(err).Str("subproject", s.Name).Msg("Subproject analysis failed")
					return nil
				}
				span.SetAttributes(attribute.Int("diagnostics.count", len(res.Sink.Diagnostics())))
				span.SetStatus(codes.Ok, "")
				st.add(s, res)
				log.Debug().Str("subproject", s.Name).Int("variables", len(res.Scope)).Msg("Analyzed subproject")
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return st, err
		}
	}
	return st, ctx.Err()
}

// analyzeOne runs the analyzer on one subproject and turns a panic into a
// classified error so siblings are unaffected.
func analyzeOne(a Analyzer, s Spec, opts analyzer.AnalysisOptions, done analyzer.SubprojectSource) (res *analyzer.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = NewAnalysisError(s.Name, "analyzer panicked", fmt.Errorf("%v", p)).WithCode(ErrCodePanic)
		}
	}()
	res = a.Analyze(analyzer.Input{
		Tree:        s.Tree,
		Options:     s.Options,
		Analysis:    opts,
		Subprojects: done,
		Provides:    s.Provides,
	})
	return res, nil
}

func (s *State) add(spec Spec, res *analyzer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, spec.Name)
	s.scopes[spec.Name] = res.Scope
	s.results[spec.Name] = res
	s.provides[spec.Name] = spec.Provides
}

// snapshot copies the analyzed subprojects into a read-only source.
func (s *State) snapshot() frozen {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := frozen{names: make([]string, len(s.names)), scopes: make(map[string]map[string]types.Set, len(s.scopes))}
	copy(f.names, s.names)
	sort.Strings(f.names)
	for name, vars := range s.scopes {
		f.scopes[name] = vars
	}
	return f
}

type frozen struct {
	names  []string
	scopes map[string]map[string]types.Set
}

func (f frozen) Names() []string { return f.names }

func (f frozen) Variables(name string) (map[string]types.Set, bool) {
	vars, ok := f.scopes[name]
	return vars, ok
}

func (s *State) addError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Names returns the analyzed subprojects in sorted order.
func (s *State) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	sort.Strings(out)
	return out
}

// Variables returns the root-scope bindings of a subproject.
func (s *State) Variables(name string) (map[string]types.Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vars, ok := s.scopes[name]
	return vars, ok
}

// Result returns the full analysis result of a subproject.
func (s *State) Result(name string) (*analyzer.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[name]
	return res, ok
}

// Provides returns the variable names a subproject declares as exported.
func (s *State) Provides(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provides[name]
}

// Errors returns the collected failures, ordered by subproject name.
func (s *State) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	sort.SliceStable(out, func(i, j int) bool {
		return subprojectOf(out[i]) < subprojectOf(out[j])
	})
	return out
}

func subprojectOf(err error) string {
	if e, ok := err.(*SubprojectError); ok {
		return e.Subproject
	}
	return ""
}
