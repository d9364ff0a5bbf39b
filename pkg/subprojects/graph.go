package subprojects

import (
	"sort"

	"github.com/mesonlint/mesonlint/pkg/ast"
)

// Graph orders subprojects so that each one is analyzed after the
// subprojects it pulls in with a literal subproject() call. Subprojects on
// the same level are independent and can be analyzed in parallel.
type Graph struct {
	// deps maps a subproject to the declared subprojects it uses.
	deps map[string][]string

	// dependents is the reverse of deps.
	dependents map[string][]string

	levels [][]string

	// cyclic holds the subprojects that take part in a dependency cycle.
	cyclic map[string]bool
}

// NewGraph builds the dependency graph of specs. Names must be unique.
func NewGraph(specs []Spec) *Graph {
	g := &Graph{
		deps:       make(map[string][]string, len(specs)),
		dependents: make(map[string][]string, len(specs)),
		cyclic:     make(map[string]bool),
	}
	for _, s := range specs {
		g.deps[s.Name] = nil
	}
	for _, s := range specs {
		for _, dep := range referencedSubprojects(s.Tree) {
			if _, known := g.deps[dep]; !known {
				continue
			}
			g.deps[s.Name] = append(g.deps[s.Name], dep)
			g.dependents[dep] = append(g.dependents[dep], s.Name)
		}
	}

	all := make(map[string]bool, len(g.deps))
	for name := range g.deps {
		all[name] = true
	}
	levels, rest := g.levelize(all)

	// Whatever Kahn's algorithm could not order sits on a cycle or behind
	// one. Drop the cycle members and order the remainder.
	if len(rest) > 0 {
		for name := range rest {
			if g.reaches(name, name, rest) {
				g.cyclic[name] = true
			}
		}
		for name := range g.cyclic {
			delete(rest, name)
		}
		more, _ := g.levelize(rest)
		levels = append(levels, more...)
	}
	g.levels = levels
	return g
}

// referencedSubprojects returns the literal names passed to subproject().
func referencedSubprojects(tree *ast.Tree) []string {
	if tree == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range tree.Files() {
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.FunctionExpression)
			if !ok || call.ID == nil || call.ID.Name != "subproject" {
				return true
			}
			args := ast.Args(call)
			if len(args) == 0 {
				return true
			}
			if sl, ok := args[0].(*ast.StringLiteral); ok && !seen[sl.Value] {
				seen[sl.Value] = true
				out = append(out, sl.Value)
			}
			return true
		})
	}
	sort.Strings(out)
	return out
}

// levelize runs Kahn's algorithm over the nodes in set, counting only edges
// inside set. It returns the sorted levels and the nodes it could not place.
func (g *Graph) levelize(set map[string]bool) ([][]string, map[string]bool) {
	inDegree := make(map[string]int, len(set))
	for name := range set {
		for _, dep := range g.deps[name] {
			if set[dep] {
				inDegree[name]++
			}
		}
	}

	var current []string
	for name := range set {
		if inDegree[name] == 0 {
			current = append(current, name)
		}
	}

	var levels [][]string
	placed := make(map[string]bool, len(set))
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		var next []string
		for _, name := range current {
			placed[name] = true
			for _, dependent := range g.dependents[name] {
				if !set[dependent] {
					continue
				}
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	rest := make(map[string]bool)
	for name := range set {
		if !placed[name] {
			rest[name] = true
		}
	}
	return levels, rest
}

// reaches reports whether to is reachable from from through deps inside set,
// using at least one edge.
func (g *Graph) reaches(from, to string, set map[string]bool) bool {
	visited := make(map[string]bool)
	stack := append([]string(nil), g.deps[from]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !set[n] || visited[n] {
			continue
		}
		if n == to {
			return true
		}
		visited[n] = true
		stack = append(stack, g.deps[n]...)
	}
	return false
}

// Levels returns the analysis order. Cycle members are not included.
func (g *Graph) Levels() [][]string {
	return g.levels
}

// Dependencies returns the subprojects name uses, sorted.
func (g *Graph) Dependencies(name string) []string {
	return g.deps[name]
}

// Cyclic returns the subprojects that take part in a dependency cycle, sorted.
func (g *Graph) Cyclic() []string {
	out := make([]string, 0, len(g.cyclic))
	for name := range g.cyclic {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CyclePath returns a shortest cycle through name, starting and ending with
// it, or nil when name is not on a cycle.
func (g *Graph) CyclePath(name string) []string {
	if !g.cyclic[name] {
		return nil
	}
	prev := map[string]string{}
	queue := []string{name}
	visited := map[string]bool{}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dep := range g.deps[n] {
			if dep == name {
				path := []string{name}
				for at := n; at != name; at = prev[at] {
					path = append(path, at)
				}
				// path is name followed by the cycle in reverse.
				for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return append(path, name)
			}
			if !visited[dep] {
				visited[dep] = true
				prev[dep] = n
				queue = append(queue, dep)
			}
		}
	}
	return nil
}
