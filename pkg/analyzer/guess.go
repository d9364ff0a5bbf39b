package analyzer

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mesonlint/mesonlint/pkg/ast"
)

const (
	maxGuessDepth  = 6
	maxGuessValues = 64
)

// guessValues estimates the strings a non-literal expression may evaluate
// to, from literals, same-file assignments, loops over literal lists and a
// few string operations. The result is sorted and unique.
func (r *run) guessValues(n ast.Node) []string {
	g := &guesser{file: ast.EnclosingFile(n)}
	vals := g.eval(n, 0)
	set := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if !set[v] {
			set[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

type guesser struct {
	file *ast.SourceFile
}

func (g *guesser) eval(n ast.Node, depth int) []string {
	if n == nil || depth > maxGuessDepth {
		return nil
	}
	switch n := n.(type) {
	case *ast.StringLiteral:
		return []string{n.Value}
	case *ast.ArrayLiteral:
		var out []string
		for _, e := range n.Elems {
			out = append(out, g.eval(e, depth+1)...)
		}
		return capValues(out)
	case *ast.ConditionalExpression:
		return capValues(append(g.eval(n.IfTrue, depth+1), g.eval(n.IfFalse, depth+1)...))
	case *ast.BinaryExpression:
		switch n.Op {
		case ast.BinaryPlus:
			return product(g.eval(n.LHS, depth+1), g.eval(n.RHS, depth+1), "")
		case ast.BinaryDiv:
			return product(g.eval(n.LHS, depth+1), g.eval(n.RHS, depth+1), "/")
		}
	case *ast.IdExpression:
		return g.variable(n.Name, depth)
	case *ast.FunctionExpression:
		if n.ID.Name == "join_paths" {
			return g.join(ast.Args(n), "/", depth)
		}
	case *ast.MethodExpression:
		return g.method(n, depth)
	}
	return nil
}

// variable collects the values assigned to name anywhere in the file and
// the elements of literal lists iterated into it.
func (g *guesser) variable(name string, depth int) []string {
	if g.file == nil {
		return nil
	}
	var out []string
	ast.Inspect(g.file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignmentStatement:
			if id, ok := n.LHS.(*ast.IdExpression); ok && id.Name == name && n.Op == ast.AssignEquals {
				out = append(out, g.eval(n.RHS, depth+1)...)
			}
		case *ast.IterationStatement:
			for i, idn := range n.IDs {
				id, ok := idn.(*ast.IdExpression)
				if !ok || id.Name != name {
					continue
				}
				switch expr := n.Expr.(type) {
				case *ast.ArrayLiteral:
					if len(n.IDs) == 1 {
						out = append(out, g.eval(expr, depth+1)...)
					}
				case *ast.DictionaryLiteral:
					for _, item := range expr.Items {
						kv, ok := item.(*ast.KeyValueItem)
						if !ok {
							continue
						}
						if i == 0 {
							out = append(out, g.eval(kv.Key, depth+1)...)
						} else {
							out = append(out, g.eval(kv.Value, depth+1)...)
						}
					}
				case *ast.IdExpression:
					if len(n.IDs) == 1 && expr.Name != name {
						out = append(out, g.variable(expr.Name, depth+1)...)
					}
				}
			}
		}
		return len(out) < maxGuessValues
	})
	return capValues(out)
}

func (g *guesser) method(n *ast.MethodExpression, depth int) []string {
	objs := g.eval(n.Obj, depth+1)
	args := ast.Args(n)
	switch n.ID.Name {
	case "underscorify":
		return mapValues(objs, underscorify)
	case "to_lower":
		return mapValues(objs, strings.ToLower)
	case "to_upper":
		return mapValues(objs, strings.ToUpper)
	case "strip":
		return mapValues(objs, strings.TrimSpace)
	case "join":
		if len(args) == 1 {
			if al, ok := args[0].(*ast.ArrayLiteral); ok {
				var out []string
				for _, sep := range objs {
					out = append(out, g.join(al.Elems, sep, depth)...)
				}
				return capValues(out)
			}
		}
	case "format":
		out := objs
		for i, a := range args {
			vals := g.eval(a, depth+1)
			if len(vals) == 0 {
				continue
			}
			placeholder := "@" + strconv.Itoa(i) + "@"
			var next []string
			for _, s := range out {
				for _, v := range vals {
					next = append(next, strings.ReplaceAll(s, placeholder, v))
				}
			}
			out = capValues(next)
		}
		return out
	}
	return nil
}

// join concatenates the values of parts with sep for every combination.
func (g *guesser) join(parts []ast.Node, sep string, depth int) []string {
	var out []string
	for i, p := range parts {
		vals := g.eval(p, depth+1)
		if len(vals) == 0 {
			return nil
		}
		if i == 0 {
			out = vals
			continue
		}
		out = product(out, vals, sep)
	}
	return out
}

func product(lhs, rhs []string, sep string) []string {
	var out []string
	for _, l := range lhs {
		for _, r := range rhs {
			out = append(out, l+sep+r)
			if len(out) >= maxGuessValues {
				return out
			}
		}
	}
	return out
}

func mapValues(in []string, fn func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fn(s)
	}
	return out
}

func capValues(in []string) []string {
	if len(in) > maxGuessValues {
		return in[:maxGuessValues]
	}
	return in
}

func underscorify(s string) string {
	return strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return c
		}
		return '_'
	}, s)
}
