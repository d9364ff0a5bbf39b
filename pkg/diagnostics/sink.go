// Package diagnostics collects the results of one analysis run: diagnostics
// in emission order and the call, identifier, keyword and subscript sites the
// analyzer resolved, keyed by node identity.
package diagnostics

import (
	"fmt"
	"sort"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/registry"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single finding. File is the path of the build file the
// range belongs to.
type Diagnostic struct {
	Severity Severity  `json:"severity" yaml:"severity"`
	File     string    `json:"file" yaml:"file"`
	Range    ast.Range `json:"range" yaml:"range"`
	Message  string    `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		d.File, d.Range.Start.Line+1, d.Range.Start.Column+1, d.Severity, d.Message)
}

// Sink is the per-run output. It is not safe for concurrent use; concurrent
// runs use separate sinks.
type Sink struct {
	diags       []Diagnostic
	calls       map[ast.Node]*registry.Function
	callOrder   []ast.Node
	identifiers []*ast.IdExpression
	kwargs      map[*ast.KeywordItem]*registry.Function
	subscripts  []*ast.SubscriptExpression
	subdirs     []*ast.FunctionExpression
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{
		calls:  make(map[ast.Node]*registry.Function),
		kwargs: make(map[*ast.KeywordItem]*registry.Function),
	}
}

func fileOf(n ast.Node) string {
	if f := ast.EnclosingFile(n); f != nil {
		return f.Path
	}
	return ""
}

// Error records an error spanning n.
func (s *Sink) Error(n ast.Node, msg string) {
	s.Span(SeverityError, n, n, msg)
}

// Warning records a warning spanning n.
func (s *Sink) Warning(n ast.Node, msg string) {
	s.Span(SeverityWarning, n, n, msg)
}

// Span records a diagnostic from the start of begin to the end of end.
func (s *Sink) Span(sev Severity, begin, end ast.Node, msg string) {
	s.diags = append(s.diags, Diagnostic{
		Severity: sev,
		File:     fileOf(begin),
		Range:    ast.Span(begin.Range(), end.Range()),
		Message:  msg,
	})
}

// Diagnostics returns the diagnostics in emission order.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// Count returns the number of diagnostics with the given severity.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

func (s *Sink) RegisterCall(call ast.Node, fn *registry.Function) {
	if _, seen := s.calls[call]; !seen {
		s.callOrder = append(s.callOrder, call)
	}
	s.calls[call] = fn
}

// Call returns the function or method a call site resolved to.
func (s *Sink) Call(call ast.Node) (*registry.Function, bool) {
	fn, ok := s.calls[call]
	return fn, ok
}

// Calls returns resolved call sites in the order they were first resolved.
func (s *Sink) Calls() []ast.Node {
	out := make([]ast.Node, len(s.callOrder))
	copy(out, s.callOrder)
	return out
}

func (s *Sink) RegisterIdentifier(id *ast.IdExpression) {
	s.identifiers = append(s.identifiers, id)
}

func (s *Sink) Identifiers() []*ast.IdExpression { return s.identifiers }

func (s *Sink) RegisterKwarg(kw *ast.KeywordItem, fn *registry.Function) {
	s.kwargs[kw] = fn
}

// Kwarg returns the callable a keyword argument was passed to.
func (s *Sink) Kwarg(kw *ast.KeywordItem) (*registry.Function, bool) {
	fn, ok := s.kwargs[kw]
	return fn, ok
}

func (s *Sink) RegisterSubscript(n *ast.SubscriptExpression) {
	s.subscripts = append(s.subscripts, n)
}

func (s *Sink) Subscripts() []*ast.SubscriptExpression { return s.subscripts }

func (s *Sink) RegisterSubdir(call *ast.FunctionExpression) {
	s.subdirs = append(s.subdirs, call)
}

func (s *Sink) Subdirs() []*ast.FunctionExpression { return s.subdirs }

// Sort orders diagnostics by file, position, severity and message. The sort
// is stable so equal diagnostics keep emission order.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Range.Start.Line != b.Range.Start.Line {
			return a.Range.Start.Line < b.Range.Start.Line
		}
		if a.Range.Start.Column != b.Range.Start.Column {
			return a.Range.Start.Column < b.Range.Start.Column
		}
		if a.Severity != b.Severity {
			return a.Severity == SeverityError
		}
		return a.Message < b.Message
	})
}
