package analyzer

import (
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/diagnostics"
	"github.com/mesonlint/mesonlint/pkg/registry"
	"github.com/mesonlint/mesonlint/pkg/types"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("failed to load builtin registry: %v", err)
	}
	return New(reg, zerolog.Nop())
}

// projectFile builds a root file whose first statement is a project() call.
func projectFile(b *ast.Builder, stmts ...ast.Node) *ast.SourceFile {
	all := append([]ast.Node{b.Call("project", b.Str("demo"))}, stmts...)
	return b.File("meson.build", all...)
}

func analyze(t *testing.T, stmts func(b *ast.Builder) []ast.Node) *Result {
	t.Helper()
	b := ast.NewBuilder()
	tree := ast.NewTree(projectFile(b, stmts(b)...))
	return newAnalyzer(t).Analyze(Input{Tree: tree})
}

func messages(res *Result, sev diagnostics.Severity) []string {
	var out []string
	for _, d := range res.Sink.Diagnostics() {
		if d.Severity == sev {
			out = append(out, d.Message)
		}
	}
	return out
}

func expectMessages(t *testing.T, res *Result, sev diagnostics.Severity, want ...string) {
	t.Helper()
	got := messages(res, sev)
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected %s diagnostics %q, got %q", sev, want, got)
	}
}

func expectScope(t *testing.T, res *Result, name, want string) {
	t.Helper()
	ts, ok := res.Scope[name]
	if !ok {
		t.Fatalf("expected %s to be bound", name)
	}
	if got := types.Join(ts); got != want {
		t.Errorf("expected %s to be %s, got %s", name, want, got)
	}
}

func TestBranchMerge_IfElse(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("x", b.Bool(true)),
			b.If(
				b.When(b.Bool(true), b.Assign("x", b.Int(1))),
				b.Otherwise(b.Assign("x", b.Str("a"))),
			),
			b.Call("message", b.Id("x")),
		}
	})
	expectScope(t, res, "x", "int|str")
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestBranchMerge_NonExhaustive(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("x", b.Str("s")),
			b.If(b.When(b.Bool(true), b.Assign("x", b.Int(1)))),
			b.Call("message", b.Id("x")),
		}
	})
	expectScope(t, res, "x", "int|str")
}

func TestBranchMerge_Nested(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("x", b.Str("s")),
			b.If(b.When(b.Bool(true),
				b.If(b.When(b.Bool(false), b.Assign("x", b.Int(1)))),
			)),
			b.Call("message", b.Id("x")),
		}
	})
	expectScope(t, res, "x", "int|str")
}

func TestBranchMerge_NewNameInOneBranch(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.If(
				b.When(b.Bool(true), b.Assign("y", b.Array(b.Str("a")))),
				b.Otherwise(b.Assign("y", b.Array(b.Int(1)))),
			),
			b.Call("message", b.Id("y")),
		}
	})
	expectScope(t, res, "y", "list(int|str)")
}

func TestCall_MissingPositional(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Call("assert")}
	})
	expectMessages(t, res, diagnostics.SeverityError, "expected 1 positional arguments, but got 0")
}

func TestCall_TooManyPositional(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Call("assert", b.Bool(true), b.Str("a"), b.Str("b"))}
	})
	expectMessages(t, res, diagnostics.SeverityError, "expected 2 positional arguments, but got 3")
}

func TestCall_Keywords(t *testing.T) {
	tests := []struct {
		name     string
		stmt     func(b *ast.Builder) ast.Node
		errors   []string
		warnings []string
	}{
		{
			name: "unknown and duplicate",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("executable", b.Str("app"), b.Str("main.c"),
					b.Kw("foo", b.Int(1)), b.Kw("install", b.Bool(true)), b.Kw("install", b.Bool(false)))
			},
			errors:   []string{"unknown keyword argument 'foo'"},
			warnings: []string{"duplicate keyword argument install"},
		},
		{
			name: "positional after keyword",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("executable", b.Str("app"), b.Kw("install", b.Bool(true)), b.Str("main.c"))
			},
			errors: []string{"unexpected positional argument after a keyword argument"},
		},
		{
			name: "missing required",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("custom_target", b.Str("gen"))
			},
			errors: []string{
				"missing required keyword argument 'command'",
				"missing required keyword argument 'output'",
			},
		},
		{
			name: "kwargs spread",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("custom_target", b.Str("gen"), b.Kw("kwargs", b.Dict()))
			},
		},
		{
			name: "argument type",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("assert", b.Str("x"))
			},
			errors: []string{"expected bool, got str"},
		},
		{
			name: "keyword type",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("executable", b.Str("app"), b.Kw("install", b.Str("yes")))
			},
			errors: []string{"expected bool, got str"},
		},
		{
			name: "unknown function",
			stmt: func(b *ast.Builder) ast.Node {
				return b.Call("frobnicate")
			},
			errors: []string{"unknown function `frobnicate`"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyze(t, func(b *ast.Builder) []ast.Node {
				return []ast.Node{tt.stmt(b)}
			})
			expectMessages(t, res, diagnostics.SeverityError, tt.errors...)
			expectMessages(t, res, diagnostics.SeverityWarning, tt.warnings...)
		})
	}
}

func TestDeprecation_ByVersion(t *testing.T) {
	tests := []struct {
		version string
		want    int
	}{
		{"0.50", 0},
		{">=0.56", 1},
		{">= 0.55.0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			b := ast.NewBuilder()
			f := b.File("meson.build",
				b.Call("project", b.Str("demo"), b.Kw("meson_version", b.Str(tt.version))),
				b.Assign("prog", b.Call("find_program", b.Str("python3"))),
				b.Call("message", b.Method(b.Id("prog"), "path")),
			)
			res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(f)})

			got := 0
			for _, m := range messages(res, diagnostics.SeverityWarning) {
				if m == "external_program.path is deprecated. Use one of these: external_program.full_path" {
					got++
				}
			}
			if got != tt.want {
				t.Errorf("expected %d deprecation warnings, got %d", tt.want, got)
			}
			if res.Version == nil {
				t.Error("expected meson_version to be parsed")
			}
		})
	}
}

func TestDeprecation_Keyword(t *testing.T) {
	b := ast.NewBuilder()
	f := b.File("meson.build",
		b.Call("project", b.Str("demo"), b.Kw("meson_version", b.Str(">=0.60.0"))),
		b.Call("custom_target", b.Str("gen"),
			b.Kw("command", b.Array(b.Str("gen.py"))),
			b.Kw("output", b.Array(b.Str("out.h"))),
			b.Kw("build_always", b.Bool(true)),
		),
	)
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(f)})
	expectMessages(t, res, diagnostics.SeverityWarning,
		"keyword build_always is deprecated. Use one of these: build_always_stale, build_by_default")
}

func TestDeadCode_SingleSpan(t *testing.T) {
	b := ast.NewBuilder()
	stmtA := b.Call("message", b.Str("a"))
	stmtB := b.Call("message", b.Str("b"))
	f := projectFile(b, b.Call("error", b.Str("boom")), stmtA, stmtB)
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(f)})

	var dead []diagnostics.Diagnostic
	for _, d := range res.Sink.Diagnostics() {
		if d.Message == "dead code" {
			dead = append(dead, d)
		}
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead code diagnostic, got %d", len(dead))
	}
	if dead[0].Severity != diagnostics.SeverityWarning {
		t.Errorf("expected warning, got %s", dead[0].Severity)
	}
	want := ast.Span(stmtA.Range(), stmtB.Range())
	if dead[0].Range != want {
		t.Errorf("expected range %+v, got %+v", want, dead[0].Range)
	}
}

func TestDeadCode_SubdirDone(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Foreach([]string{"x"}, b.Array(b.Str("a")),
				b.Call("subdir_done"),
				b.Call("message", b.Id("x")),
			),
		}
	})
	expectMessages(t, res, diagnostics.SeverityWarning, "dead code")
}

func TestUnusedAssignment(t *testing.T) {
	b := ast.NewBuilder()
	f := projectFile(b,
		b.Assign("unused_var", b.Int(1)),
		b.Assign("used_var", b.Int(2)),
		b.Assign("exported", b.Str("x")),
		b.Assign("dep_var", b.Call("declare_dependency")),
		b.Call("message", b.Id("used_var")),
	)
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(f), Provides: []string{"exported"}})
	expectMessages(t, res, diagnostics.SeverityWarning, "unused assignment")
}

func TestUnusedAssignment_InBranches(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.If(
				b.When(b.Bool(true), b.Assign("flag", b.Int(1))),
				b.Otherwise(b.Assign("flag", b.Int(2))),
			),
		}
	})
	expectMessages(t, res, diagnostics.SeverityWarning, "unused assignment")
}

func TestUnknownIdentifier(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Call("message", b.Id("missing")),
			b.If(b.When(b.Call("is_variable", b.Str("maybe")),
				b.Call("message", b.Id("maybe")),
			)),
		}
	})
	expectMessages(t, res, diagnostics.SeverityError, "unknown identifier `missing`")
}

func TestIdentifierNaming(t *testing.T) {
	build := func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("camelCase", b.Int(1)),
			b.Assign("SCREAMING_CASE", b.Int(2)),
			b.Assign("snake_case", b.Int(3)),
			b.Call("message", b.Id("camelCase"), b.Id("SCREAMING_CASE"), b.Id("snake_case")),
		}
	}
	res := analyze(t, build)
	expectMessages(t, res, diagnostics.SeverityWarning, "expected snake case")

	b := ast.NewBuilder()
	tree := ast.NewTree(projectFile(b, build(b)...))
	res = newAnalyzer(t).Analyze(Input{Tree: tree, Analysis: AnalysisOptions{DisableNameLinting: true}})
	expectMessages(t, res, diagnostics.SeverityWarning)
}

func TestAssignment_Errors(t *testing.T) {
	tests := []struct {
		name string
		stmt func(b *ast.Builder) ast.Node
		want string
	}{
		{"read-only", func(b *ast.Builder) ast.Node {
			return b.Assign("meson", b.Int(1))
		}, "attempted to re-assign to existing, read-only variable"},
		{"void", func(b *ast.Builder) ast.Node {
			return b.Assign("nothing", b.Call("message", b.Str("a")))
		}, "cannot assign from void"},
		{"not a variable", func(b *ast.Builder) ast.Node {
			return b.AssignOp(ast.AssignEquals, b.Str("lit"), b.Int(1))
		}, "can only assign to variables"},
		{"operator", func(b *ast.Builder) ast.Node {
			return b.Assign("bad", b.Binary(ast.BinaryPlus, b.Int(1), b.Str("a")))
		}, "unable to apply operator `+` to types int and str"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyze(t, func(b *ast.Builder) []ast.Node {
				return []ast.Node{tt.stmt(b)}
			})
			expectMessages(t, res, diagnostics.SeverityError, tt.want)
		})
	}
}

func TestAssignment_InstallPrefixIsNotVoid(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Assign("headers", b.Call("install_headers", b.Str("a.h")))}
	})
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestAugmentedAssignment(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("srcs", b.Array(b.Str("a.c"))),
			b.AssignOp(ast.AssignPlus, b.Id("srcs"), b.Int(1)),
			b.Assign("name", b.Str("a")),
			b.AssignOp(ast.AssignPlus, b.Id("name"), b.Int(1)),
			b.Call("message", b.Id("srcs"), b.Id("name")),
		}
	})
	expectScope(t, res, "srcs", "list(int|str)")
	expectScope(t, res, "name", "str")
	expectMessages(t, res, diagnostics.SeverityError, "unable to apply operator `+=` to types str and int")
}

func TestEvalBinary(t *testing.T) {
	tests := []struct {
		op       ast.BinaryOp
		lhs, rhs types.Set
		want     string
		errs     int
	}{
		{ast.BinaryPlus, types.Set{types.Int}, types.Set{types.Int}, "int", 0},
		{ast.BinaryPlus, types.Set{types.Str}, types.Set{types.Int}, "str", 1},
		{ast.BinaryPlus, types.Set{types.List(types.Str)}, types.Set{types.Int}, "list(int|str)", 0},
		{ast.BinaryPlus, types.Set{types.Dict(types.Str)}, types.Set{types.Dict(types.Int)}, "dict(int|str)", 0},
		{ast.BinaryDiv, types.Set{types.Str}, types.Set{types.Str}, "str", 0},
		{ast.BinaryMod, types.Set{types.Str}, types.Set{types.Int}, "str", 1},
		{ast.BinaryEq, types.Set{types.Bool}, types.Set{types.Bool}, "bool", 0},
		{ast.BinaryLt, types.Set{types.Bool}, types.Set{types.Bool}, "bool", 1},
		{ast.BinaryIn, types.Set{types.Str}, types.Set{types.List(types.Str)}, "bool", 0},
		{ast.BinaryAnd, types.Set{types.Any}, types.Set{types.Bool}, "bool", 0},
		{ast.BinaryAnd, types.Set{types.Any}, types.Set{types.Any}, "any", 1},
		{ast.BinaryPlus, types.Set{types.Int, types.Str}, types.Set{types.Str}, "str", 1},
	}
	for _, tt := range tests {
		got, errs := evalBinary(tt.op, tt.lhs, tt.rhs)
		if types.Join(types.Dedup(got)) != tt.want || errs != tt.errs {
			t.Errorf("%s %s %s: expected %s with %d errors, got %s with %d",
				types.Join(tt.lhs), tt.op, types.Join(tt.rhs), tt.want, tt.errs, types.Join(got), errs)
		}
	}
}

func TestIsSpecial(t *testing.T) {
	if !isSpecial(types.Set{types.Any, types.List(types.Any), types.Dict(types.Any)}) {
		t.Error("expected the three wildcard union to be special")
	}
	if isSpecial(types.Set{types.Any}) {
		t.Error("expected a lone any not to be special")
	}
	if isSpecial(types.Set{types.Any, types.List(types.Str), types.Dict(types.Any)}) {
		t.Error("expected a concrete list member to disable the heuristic")
	}
}

func TestExpressions(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("d", b.Dict(b.KV(b.Str("a"), b.Int(1)))),
			b.Assign("from_dict", b.Index(b.Id("d"), b.Str("a"))),
			b.Assign("l", b.Array(b.Str("x"))),
			b.Assign("from_list", b.Index(b.Id("l"), b.Int(0))),
			b.Assign("from_str", b.Index(b.Str("abc"), b.Int(0))),
			b.Assign("neg", b.Unary(ast.UnaryMinus, b.Int(1))),
			b.Assign("inv", b.Unary(ast.UnaryNot, b.Bool(true))),
			b.Assign("pick", b.Ternary(b.Bool(true), b.Int(1), b.Str("s"))),
			b.Assign("joined", b.Binary(ast.BinaryDiv, b.Str("a"), b.Str("b"))),
			b.Call("message", b.Id("from_dict"), b.Id("from_list"), b.Id("from_str"),
				b.Id("neg"), b.Id("inv"), b.Id("pick"), b.Id("joined")),
		}
	})
	expectScope(t, res, "d", "dict(int)")
	expectScope(t, res, "from_dict", "int")
	expectScope(t, res, "from_list", "str")
	expectScope(t, res, "from_str", "str")
	expectScope(t, res, "neg", "int")
	expectScope(t, res, "inv", "bool")
	expectScope(t, res, "pick", "int|str")
	expectScope(t, res, "joined", "str")
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestExpressions_Diagnostics(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Call("message", b.Dict(b.KV(b.Str("a"), b.Int(1)), b.KV(b.Str("a"), b.Int(2)))),
			b.Call("message", b.Ternary(b.Int(1), b.Str("a"), b.Str("b"))),
			b.If(b.When(b.Str("yes"), b.Call("message", b.Str("x")))),
			b.Error("unexpected token"),
			b.Break(),
		}
	})
	expectMessages(t, res, diagnostics.SeverityError,
		`duplicate key "a"`,
		"condition is not bool: int",
		"condition is not bool: str",
		"unexpected token",
		"break statements are only allowed inside loops",
	)
}

func TestNoEffect(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Int(1),
			b.Call("files", b.Str("a.c")),
			b.Method(b.Str("a"), "to_upper"),
			b.Call("message", b.Str("has effect")),
		}
	})
	msg := "statement does not have an effect or the result to the call is unused"
	expectMessages(t, res, diagnostics.SeverityWarning, msg, msg, msg)
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name   string
		loop   func(b *ast.Builder) ast.Node
		bound  map[string]string
		errors []string
	}{
		{
			name: "list",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"item"}, b.Array(b.Str("a"), b.Str("b")),
					b.Call("message", b.Id("item")))
			},
			bound: map[string]string{"item": "str"},
		},
		{
			name: "range",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"i"}, b.Call("range", b.Int(3)),
					b.Call("message", b.Id("i")))
			},
			bound: map[string]string{"i": "int"},
		},
		{
			name: "dict",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"k", "v"}, b.Dict(b.KV(b.Str("a"), b.Int(1))),
					b.Call("message", b.Id("k"), b.Id("v")))
			},
			bound: map[string]string{"k": "str", "v": "int"},
		},
		{
			name: "dict with one identifier",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"x"}, b.Dict(b.KV(b.Str("a"), b.Int(1))))
			},
			errors: []string{"iterating over a dict requires two identifiers"},
		},
		{
			name: "list with two identifiers",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"k", "v"}, b.Array(b.Str("a")))
			},
			errors: []string{"iterating over a list/range requires one identifier"},
		},
		{
			name: "three identifiers",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"a", "b", "c"}, b.Array())
			},
			errors: []string{"iteration statement expects only one or two identifiers"},
		},
		{
			name: "not iterable",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"x"}, b.Int(3), b.Continue())
			},
			errors: []string{"expression yields no iterable result"},
		},
		{
			name: "void expression",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"x"}, b.Call("message", b.Str("a")))
			},
			errors: []string{"expression yields no iterable result"},
		},
		{
			name: "void expression with two identifiers",
			loop: func(b *ast.Builder) ast.Node {
				return b.Foreach([]string{"k", "v"}, b.Call("message", b.Str("a")))
			},
			errors: []string{"expression yields no iterable result"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyze(t, func(b *ast.Builder) []ast.Node {
				return []ast.Node{tt.loop(b)}
			})
			for name, want := range tt.bound {
				expectScope(t, res, name, want)
			}
			expectMessages(t, res, diagnostics.SeverityError, tt.errors...)
		})
	}
}

func TestMethods(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("upper", b.Method(b.Str("a"), "to_upper")),
			b.Assign("l", b.Array(b.Str("a"))),
			b.Assign("first", b.Method(b.Id("l"), "get", b.Int(0))),
			b.Assign("with_default", b.Method(b.Id("l"), "get", b.Int(5), b.Int(1))),
			b.Assign("d", b.Dict(b.KV(b.Str("k"), b.Int(1)))),
			b.Assign("value", b.Method(b.Id("d"), "get", b.Str("k"))),
			b.Assign("guessed", b.Method(b.Call("get_variable", b.Str("nope")), "found")),
			b.Assign("off", b.Call("disabler")),
			b.Method(b.Id("off"), "frobnicate"),
			b.Assign("n", b.Int(1)),
			b.Method(b.Id("n"), "frobnicate"),
			b.Call("message", b.Id("upper"), b.Id("first"), b.Id("with_default"), b.Id("value"), b.Id("guessed")),
		}
	})
	expectScope(t, res, "upper", "str")
	expectScope(t, res, "first", "str")
	expectScope(t, res, "with_default", "int|str")
	expectScope(t, res, "value", "int")
	expectScope(t, res, "guessed", "bool")
	expectMessages(t, res, diagnostics.SeverityError, "no method `frobnicate` found for types `int`")
}

func TestMethods_GetKeyType(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("l", b.Array(b.Str("a"))),
			b.Assign("d", b.Dict(b.KV(b.Str("k"), b.Int(1)))),
			b.Method(b.Id("l"), "get", b.Str("k")),
			b.Method(b.Id("d"), "get", b.Int(0)),
		}
	})
	expectMessages(t, res, diagnostics.SeverityError,
		"no method `get` found for types `list(str)`",
		"no method `get` found for types `dict(int)`",
	)
}

func TestStrFormat(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Call("message", b.Method(b.Str("@0@"), "format", b.Str("a"), b.Str("b"))),
			b.Call("message", b.Method(b.Str("@0@ @2@"), "format", b.Str("a"))),
			b.Call("message", b.Method(b.Str("plain"), "format")),
		}
	})
	expectMessages(t, res, diagnostics.SeverityWarning,
		"unused parameter in format() call",
		"pointless str.format() call",
	)
	expectMessages(t, res, diagnostics.SeverityError, "parameters out of bounds: @2@")
}

func TestFormatString(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("name", b.Str("x")),
			b.Call("message", b.FStr("@name@ and @other@")),
		}
	})
	expectMessages(t, res, diagnostics.SeverityError, "unknown identifier `other` in format string")
	expectMessages(t, res, diagnostics.SeverityWarning)
}

func TestGetOption(t *testing.T) {
	build := func(b *ast.Builder) *ast.Tree {
		return ast.NewTree(projectFile(b,
			b.Assign("a", b.Call("get_option", b.Str("with_x"))),
			b.Assign("bt", b.Call("get_option", b.Str("buildtype"))),
			b.Assign("c", b.Call("get_option", b.Str("nope"))),
			b.Assign("old", b.Call("get_option", b.Str("legacy"))),
			b.Call("message", b.Id("a"), b.Id("bt"), b.Id("c"), b.Id("old")),
		))
	}
	opts := []registry.Option{
		{Name: "with_x", Kind: registry.OptionBool},
		{Name: "legacy", Kind: registry.OptionString, Deprecated: true},
	}
	res := newAnalyzer(t).Analyze(Input{Tree: build(ast.NewBuilder()), Options: opts})
	expectScope(t, res, "a", "bool")
	expectScope(t, res, "bt", "str")
	expectScope(t, res, "old", "str")
	expectMessages(t, res, diagnostics.SeverityError, "unknown option `nope`")
	expectMessages(t, res, diagnostics.SeverityWarning, "option `legacy` is deprecated")

	res = newAnalyzer(t).Analyze(Input{Tree: build(ast.NewBuilder())})
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestVariables(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Call("set_variable", b.Str("dyn"), b.Int(1)),
			b.Assign("got", b.Call("get_variable", b.Str("dyn"))),
			b.Foreach([]string{"prefix"}, b.Array(b.Str("a"), b.Str("b")),
				b.Call("set_variable", b.Binary(ast.BinaryPlus, b.Id("prefix"), b.Str("_enabled")), b.Bool(true)),
			),
			b.Call("message", b.Id("got")),
		}
	})
	expectScope(t, res, "got", "int")
	expectScope(t, res, "a_enabled", "bool")
	expectScope(t, res, "b_enabled", "bool")
}

func TestSubdir(t *testing.T) {
	b := ast.NewBuilder()
	root := projectFile(b,
		b.Call("subdir", b.Str("src")),
		b.Call("subdir", b.Str("missing")),
		b.Call("message", b.Id("from_src")),
	)
	src := b.File("src/meson.build",
		b.Assign("from_src", b.Str("x")),
		b.Call("subdir", b.Str("..")),
	)
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(root, src)})

	expectScope(t, res, "from_src", "str")
	expectMessages(t, res, diagnostics.SeverityError,
		"recursive inclusion of meson.build",
		"unable to find subdir missing",
	)
	expectMessages(t, res, diagnostics.SeverityWarning)
	if n := len(res.Sink.Subdirs()); n != 3 {
		t.Errorf("expected 3 subdir calls, got %d", n)
	}
	for _, d := range res.Sink.Diagnostics() {
		if strings.HasPrefix(d.Message, "recursive") && d.File != "src/meson.build" {
			t.Errorf("expected recursion to be reported in src/meson.build, got %s", d.File)
		}
	}
}

func TestSubdir_Guessed(t *testing.T) {
	b := ast.NewBuilder()
	root := projectFile(b,
		b.Foreach([]string{"dir"}, b.Array(b.Str("a"), b.Str("b")),
			b.Call("subdir", b.Id("dir")),
		),
		b.Call("message", b.Id("a_var"), b.Id("b_var")),
	)
	a := b.File("a/meson.build", b.Assign("a_var", b.Int(1)))
	bf := b.File("b/meson.build", b.Assign("b_var", b.Int(2)))
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(root, a, bf)})

	expectScope(t, res, "a_var", "int")
	expectScope(t, res, "b_var", "int")
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestSubdir_GuessedFromDictKeys(t *testing.T) {
	b := ast.NewBuilder()
	root := projectFile(b,
		b.Foreach([]string{"dir", "enabled"}, b.Dict(b.KV(b.Str("a"), b.Bool(true)), b.KV(b.Str("b"), b.Bool(false))),
			b.If(b.When(b.Id("enabled"), b.Call("subdir", b.Id("dir")))),
		),
		b.Call("message", b.Id("a_var"), b.Id("b_var")),
	)
	a := b.File("a/meson.build", b.Assign("a_var", b.Int(1)))
	bf := b.File("b/meson.build", b.Assign("b_var", b.Int(2)))
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(root, a, bf)})

	expectScope(t, res, "a_var", "int")
	expectScope(t, res, "b_var", "int")
	expectMessages(t, res, diagnostics.SeverityError)
}

func TestDict_DuplicateKey(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		return []ast.Node{
			b.Assign("d", b.Dict(
				b.KV(b.Str("a"), b.Int(1)),
				b.KV(b.Str("b"), b.Bool(true)),
				b.KV(b.Str("a"), b.Str("x")),
			)),
			b.Call("message", b.Id("d")),
		}
	})
	expectScope(t, res, "d", "dict(bool|int|str)")
	expectMessages(t, res, diagnostics.SeverityError, `duplicate key "a"`)
}

type fakeSubprojects map[string]map[string]types.Set

func (f fakeSubprojects) Names() []string {
	var out []string
	for name := range f {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f fakeSubprojects) Variables(name string) (map[string]types.Set, bool) {
	vars, ok := f[name]
	return vars, ok
}

func TestSubprojects(t *testing.T) {
	a := newAnalyzer(t)
	dep, _ := a.Registry().Type("dep")
	subs := fakeSubprojects{"zlib": {"zlib_dep": types.Set{dep}}}

	b := ast.NewBuilder()
	f := projectFile(b,
		b.Assign("zlib", b.Call("subproject", b.Str("zlib"))),
		b.Assign("zdep", b.Method(b.Id("zlib"), "get_variable", b.Str("zlib_dep"))),
		b.Assign("other", b.Method(b.Id("zlib"), "get_variable", b.Str("nope"))),
		b.Assign("missing", b.Call("subproject", b.Str("absent"))),
	)
	res := a.Analyze(Input{Tree: ast.NewTree(f), Subprojects: subs})

	expectScope(t, res, "zlib", "subproject(zlib)")
	if !res.Scope["zdep"].Has(types.KindObject) {
		t.Errorf("expected zdep to include dep, got %s", types.Join(res.Scope["zdep"]))
	}
	expectMessages(t, res, diagnostics.SeverityError,
		"unable to find variables called [nope] in subprojects",
		"unable to find subprojects [absent]",
	)
}

func TestWellKnownComparison(t *testing.T) {
	build := func(b *ast.Builder, id string) *ast.Tree {
		return ast.NewTree(projectFile(b,
			b.Assign("cc", b.Method(b.Id("meson"), "get_compiler", b.Str("c"))),
			b.If(b.When(b.Binary(ast.BinaryEq, b.Method(b.Id("cc"), "get_id"), b.Str(id)),
				b.Call("message", b.Str("x")),
			)),
		))
	}
	a := newAnalyzer(t)
	expectMessages(t, a.Analyze(Input{Tree: build(ast.NewBuilder(), "gnu-c")}), diagnostics.SeverityWarning, "unknown compiler id")
	expectMessages(t, a.Analyze(Input{Tree: build(ast.NewBuilder(), "gcc")}), diagnostics.SeverityWarning)
	res := a.Analyze(Input{
		Tree:     build(ast.NewBuilder(), "gnu-c"),
		Analysis: AnalysisOptions{DisableCompilerIDLinting: true},
	})
	expectMessages(t, res, diagnostics.SeverityWarning)
}

// The lint looks at every equality comparison, not only those directly
// under an assignment or a condition.
func TestWellKnownComparison_AnyContext(t *testing.T) {
	res := analyze(t, func(b *ast.Builder) []ast.Node {
		cc := func() ast.Node { return b.Method(b.Id("cc"), "get_id") }
		return []ast.Node{
			b.Assign("cc", b.Method(b.Id("meson"), "get_compiler", b.Str("c"))),
			b.Assign("flag", b.Ternary(b.Binary(ast.BinaryEq, cc(), b.Str("gnu-c")), b.Str("a"), b.Str("b"))),
			b.Call("message", b.Binary(ast.BinaryNe, b.Str("windos"), b.Method(b.Id("build_machine"), "system"))),
			b.If(b.When(b.Unary(ast.UnaryNot, b.Binary(ast.BinaryEq, b.Method(b.Id("build_machine"), "cpu_family"), b.Str("x87"))),
				b.Call("message", b.Id("flag")),
			)),
		}
	})
	expectMessages(t, res, diagnostics.SeverityWarning,
		"unknown compiler id",
		"unknown operating system name",
		"unknown cpu family",
	)
}

func TestRootChecks(t *testing.T) {
	a := newAnalyzer(t)
	b := ast.NewBuilder()
	res := a.Analyze(Input{Tree: ast.NewTree(b.File("meson.build"))})
	expectMessages(t, res, diagnostics.SeverityError, "missing project() call at top of file")

	res = a.Analyze(Input{Tree: ast.NewTree(b.File("meson.build", b.Call("message", b.Str("x"))))})
	expectMessages(t, res, diagnostics.SeverityError, "first statement is not a project() call")
}

func TestCallSiteRecords(t *testing.T) {
	b := ast.NewBuilder()
	idx := b.Index(b.Id("l"), b.Int(0))
	kw := b.Kw("install", b.Bool(true))
	f := projectFile(b,
		b.Assign("l", b.Array(b.Str("a"))),
		b.Call("executable", b.Str("app"), idx, kw),
	)
	res := newAnalyzer(t).Analyze(Input{Tree: ast.NewTree(f)})

	if n := len(res.Sink.Calls()); n != 2 {
		t.Errorf("expected 2 resolved calls, got %d", n)
	}
	if fn, ok := res.Sink.Kwarg(kw); !ok || fn.Name != "executable" {
		t.Error("expected install keyword to be attributed to executable")
	}
	if subs := res.Sink.Subscripts(); len(subs) != 1 || subs[0] != idx {
		t.Error("expected the subscript site to be recorded")
	}
	if len(res.Sink.Identifiers()) == 0 {
		t.Error("expected identifiers to be recorded")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	b := ast.NewBuilder()
	f := projectFile(b,
		b.Assign("unusedA", b.Int(1)),
		b.Assign("x", b.Str("s")),
		b.If(
			b.When(b.Bool(true), b.Assign("x", b.Int(1))),
			b.When(b.Bool(false), b.Assign("y", b.Array(b.Str("a")))),
		),
		b.Call("message", b.Id("x"), b.Id("missing")),
		b.Assign("bad", b.Binary(ast.BinaryMinus, b.Str("a"), b.Str("b"))),
		b.Call("error", b.Str("stop")),
		b.Int(3),
		b.Call("assert"),
	)
	tree := ast.NewTree(f)
	a := newAnalyzer(t)

	render := func() string {
		var lines []string
		for _, d := range a.Analyze(Input{Tree: tree}).Sink.Diagnostics() {
			lines = append(lines, d.String())
		}
		return strings.Join(lines, "\n")
	}
	first, second := render(), render()
	if first == "" {
		t.Fatal("expected diagnostics")
	}
	if first != second {
		t.Errorf("expected identical diagnostics, got\n%s\nand\n%s", first, second)
	}
}
