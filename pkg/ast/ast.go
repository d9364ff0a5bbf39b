// Package ast defines the immutable node tree the analyzer walks. Trees are
// produced by an external parser (see Decode) or by Builder. Every node
// carries a source range, a non-owning parent link and a mutable slot for the
// inferred types filled in by the analyzer.
package ast

import (
	"github.com/mesonlint/mesonlint/pkg/types"
)

// Position is a zero-based line and column.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Range is a half-open source span.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Span returns the range from the start of a to the end of b.
func Span(a, b Range) Range {
	return Range{Start: a.Start, End: b.End}
}

// Node is implemented by the fixed set of node kinds in this package.
type Node interface {
	Range() Range
	Parent() Node
	Types() types.Set
	SetTypes(types.Set)
	Children() []Node
	header() *nodeHeader
}

type nodeHeader struct {
	rng    Range
	parent Node
	types  types.Set
}

func (h *nodeHeader) Range() Range          { return h.rng }
func (h *nodeHeader) Parent() Node          { return h.parent }
func (h *nodeHeader) Types() types.Set      { return h.types }
func (h *nodeHeader) SetTypes(ts types.Set) { h.types = ts }
func (h *nodeHeader) header() *nodeHeader   { return h }
func (h *nodeHeader) setRange(r Range)      { h.rng = r }

// UnaryOp is a prefix operator.
type UnaryOp string

const (
	UnaryMinus UnaryOp = "-"
	UnaryNot   UnaryOp = "not"
	UnaryBang  UnaryOp = "!"
)

// BinaryOp is an infix operator. BinaryInvalid marks an expression the
// parser could not assign an operator to.
type BinaryOp string

const (
	BinaryInvalid BinaryOp = ""
	BinaryAnd     BinaryOp = "and"
	BinaryOr      BinaryOp = "or"
	BinaryPlus    BinaryOp = "+"
	BinaryMinus   BinaryOp = "-"
	BinaryMul     BinaryOp = "*"
	BinaryDiv     BinaryOp = "/"
	BinaryMod     BinaryOp = "%"
	BinaryEq      BinaryOp = "=="
	BinaryNe      BinaryOp = "!="
	BinaryLt      BinaryOp = "<"
	BinaryLe      BinaryOp = "<="
	BinaryGt      BinaryOp = ">"
	BinaryGe      BinaryOp = ">="
	BinaryIn      BinaryOp = "in"
	BinaryNotIn   BinaryOp = "not in"
)

// AssignOp is an assignment operator.
type AssignOp string

const (
	AssignEquals AssignOp = "="
	AssignPlus   AssignOp = "+="
	AssignMinus  AssignOp = "-="
	AssignMul    AssignOp = "*="
	AssignDiv    AssignOp = "/="
	AssignMod    AssignOp = "%="
)

// Binary returns the binary operator an augmented assignment applies.
func (op AssignOp) Binary() BinaryOp {
	switch op {
	case AssignPlus:
		return BinaryPlus
	case AssignMinus:
		return BinaryMinus
	case AssignMul:
		return BinaryMul
	case AssignDiv:
		return BinaryDiv
	case AssignMod:
		return BinaryMod
	}
	return BinaryInvalid
}

// SourceFile is the root of one meson.build file.
type SourceFile struct {
	nodeHeader
	Path string
	Body *BuildDefinition
}

// BuildDefinition is the statement list of a file.
type BuildDefinition struct {
	nodeHeader
	Stmts []Node
}

type IntegerLiteral struct {
	nodeHeader
	Value int64
}

type StringLiteral struct {
	nodeHeader
	Value string
	// Format marks f'...' strings.
	Format bool
}

type BooleanLiteral struct {
	nodeHeader
	Value bool
}

type ArrayLiteral struct {
	nodeHeader
	Elems []Node
}

// DictionaryLiteral holds KeyValueItem entries.
type DictionaryLiteral struct {
	nodeHeader
	Items []Node
}

type KeyValueItem struct {
	nodeHeader
	Key   Node
	Value Node
}

type IdExpression struct {
	nodeHeader
	Name string
}

// FunctionExpression is a call of a global function. Args is never nil for
// trees built by this package.
type FunctionExpression struct {
	nodeHeader
	ID   *IdExpression
	Args *ArgumentList
}

type MethodExpression struct {
	nodeHeader
	Obj  Node
	ID   *IdExpression
	Args *ArgumentList
}

// ArgumentList holds positional arguments and KeywordItem entries in source order.
type ArgumentList struct {
	nodeHeader
	Args []Node
}

type KeywordItem struct {
	nodeHeader
	Key   Node
	Value Node
}

// KeyName returns the keyword name, or "" when the key is not an identifier.
func (k *KeywordItem) KeyName() string {
	if id, ok := k.Key.(*IdExpression); ok {
		return id.Name
	}
	return ""
}

type SubscriptExpression struct {
	nodeHeader
	Outer Node
	Inner Node
}

type UnaryExpression struct {
	nodeHeader
	Op      UnaryOp
	Operand Node
}

type BinaryExpression struct {
	nodeHeader
	Op  BinaryOp
	LHS Node
	RHS Node
}

type ConditionalExpression struct {
	nodeHeader
	Cond    Node
	IfTrue  Node
	IfFalse Node
}

type AssignmentStatement struct {
	nodeHeader
	Op  AssignOp
	LHS Node
	RHS Node
}

// SelectionStatement is an if/elif/else chain. Blocks has one more entry
// than Conditions when a trailing else is present.
type SelectionStatement struct {
	nodeHeader
	Conditions []Node
	Blocks     [][]Node
}

// IterationStatement is a foreach loop over Expr binding IDs.
type IterationStatement struct {
	nodeHeader
	IDs   []Node
	Expr  Node
	Block []Node
}

type BreakNode struct {
	nodeHeader
}

type ContinueNode struct {
	nodeHeader
}

// ErrorNode is a parser recovery node.
type ErrorNode struct {
	nodeHeader
	Message string
}

func (n *SourceFile) Children() []Node {
	if n.Body == nil {
		return nil
	}
	return []Node{n.Body}
}

func (n *BuildDefinition) Children() []Node { return n.Stmts }
func (n *IntegerLiteral) Children() []Node  { return nil }
func (n *StringLiteral) Children() []Node   { return nil }
func (n *BooleanLiteral) Children() []Node  { return nil }
func (n *ArrayLiteral) Children() []Node    { return n.Elems }
func (n *DictionaryLiteral) Children() []Node {
	return n.Items
}
func (n *KeyValueItem) Children() []Node { return []Node{n.Key, n.Value} }
func (n *IdExpression) Children() []Node { return nil }

func (n *FunctionExpression) Children() []Node {
	out := []Node{n.ID}
	if n.Args != nil {
		out = append(out, n.Args)
	}
	return out
}

func (n *MethodExpression) Children() []Node {
	out := []Node{n.Obj, n.ID}
	if n.Args != nil {
		out = append(out, n.Args)
	}
	return out
}

func (n *ArgumentList) Children() []Node        { return n.Args }
func (n *KeywordItem) Children() []Node         { return []Node{n.Key, n.Value} }
func (n *SubscriptExpression) Children() []Node { return []Node{n.Outer, n.Inner} }
func (n *UnaryExpression) Children() []Node     { return []Node{n.Operand} }
func (n *BinaryExpression) Children() []Node    { return []Node{n.LHS, n.RHS} }
func (n *ConditionalExpression) Children() []Node {
	return []Node{n.Cond, n.IfTrue, n.IfFalse}
}
func (n *AssignmentStatement) Children() []Node { return []Node{n.LHS, n.RHS} }

func (n *SelectionStatement) Children() []Node {
	var out []Node
	for i, b := range n.Blocks {
		if i < len(n.Conditions) {
			out = append(out, n.Conditions[i])
		}
		out = append(out, b...)
	}
	return out
}

func (n *IterationStatement) Children() []Node {
	out := append([]Node{}, n.IDs...)
	out = append(out, n.Expr)
	return append(out, n.Block...)
}

func (n *BreakNode) Children() []Node    { return nil }
func (n *ContinueNode) Children() []Node { return nil }
func (n *ErrorNode) Children() []Node    { return nil }

// Args returns the positional and keyword arguments of a call, or nil.
func Args(call Node) []Node {
	switch c := call.(type) {
	case *FunctionExpression:
		if c.Args != nil {
			return c.Args.Args
		}
	case *MethodExpression:
		if c.Args != nil {
			return c.Args.Args
		}
	}
	return nil
}

// SetParents links every descendant of root to its parent.
func SetParents(root Node) {
	for _, c := range root.Children() {
		if c == nil {
			continue
		}
		c.header().parent = root
		SetParents(c)
	}
}

// Inspect walks the tree depth first calling fn for each node. Children are
// skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Inspect(c, fn)
	}
}

// EnclosingFile returns the SourceFile n belongs to.
func EnclosingFile(n Node) *SourceFile {
	for p := n; p != nil; p = p.Parent() {
		if f, ok := p.(*SourceFile); ok {
			return f
		}
	}
	return nil
}
