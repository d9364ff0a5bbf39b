package ast

// Builder constructs trees for tests and tools. Positions are synthetic and
// assigned by File in source order: each leaf occupies its own line and
// composite nodes span their children.
type Builder struct {
	line int
}

// NewBuilder creates a builder starting at line 0.
func NewBuilder() *Builder {
	return &Builder{}
}

// Clause is one branch of a selection statement. A nil Cond is an else branch.
type Clause struct {
	Cond Node
	Body []Node
}

// place assigns positions to n and its descendants in source order.
func (b *Builder) place(n Node) Range {
	var (
		r    Range
		seen bool
	)
	for _, c := range n.Children() {
		if c == nil {
			continue
		}
		cr := b.place(c)
		if !seen {
			r, seen = cr, true
		} else {
			r.End = cr.End
		}
	}
	if !seen {
		r = Range{
			Start: Position{Line: b.line},
			End:   Position{Line: b.line, Column: width(n)},
		}
		b.line++
	}
	n.header().setRange(r)
	return r
}

func width(n Node) int {
	switch n := n.(type) {
	case *IdExpression:
		return len(n.Name)
	case *StringLiteral:
		return len(n.Value) + 2
	case *BreakNode:
		return len("break")
	case *ContinueNode:
		return len("continue")
	}
	return 1
}

// File creates a source file with the given statements, assigns positions
// to every node in it and links the parents.
func (b *Builder) File(path string, stmts ...Node) *SourceFile {
	f := &SourceFile{Path: path, Body: &BuildDefinition{Stmts: stmts}}
	b.place(f)
	SetParents(f)
	return f
}

func (b *Builder) Int(v int64) *IntegerLiteral { return &IntegerLiteral{Value: v} }
func (b *Builder) Str(s string) *StringLiteral { return &StringLiteral{Value: s} }

// FStr creates a format string literal.
func (b *Builder) FStr(s string) *StringLiteral { return &StringLiteral{Value: s, Format: true} }

func (b *Builder) Bool(v bool) *BooleanLiteral       { return &BooleanLiteral{Value: v} }
func (b *Builder) Id(name string) *IdExpression      { return &IdExpression{Name: name} }
func (b *Builder) Array(elems ...Node) *ArrayLiteral { return &ArrayLiteral{Elems: elems} }

func (b *Builder) KV(key, value Node) *KeyValueItem {
	return &KeyValueItem{Key: key, Value: value}
}

func (b *Builder) Dict(items ...*KeyValueItem) *DictionaryLiteral {
	nodes := make([]Node, len(items))
	for i, it := range items {
		nodes[i] = it
	}
	return &DictionaryLiteral{Items: nodes}
}

// Kw creates a keyword argument.
func (b *Builder) Kw(name string, value Node) *KeywordItem {
	return &KeywordItem{Key: b.Id(name), Value: value}
}

// Call creates a function call. Keyword arguments are created with Kw.
func (b *Builder) Call(name string, args ...Node) *FunctionExpression {
	return &FunctionExpression{ID: b.Id(name), Args: &ArgumentList{Args: args}}
}

// Method creates a method call on obj.
func (b *Builder) Method(obj Node, name string, args ...Node) *MethodExpression {
	return &MethodExpression{Obj: obj, ID: b.Id(name), Args: &ArgumentList{Args: args}}
}

func (b *Builder) Index(outer, inner Node) *SubscriptExpression {
	return &SubscriptExpression{Outer: outer, Inner: inner}
}

func (b *Builder) Unary(op UnaryOp, operand Node) *UnaryExpression {
	return &UnaryExpression{Op: op, Operand: operand}
}

func (b *Builder) Binary(op BinaryOp, lhs, rhs Node) *BinaryExpression {
	return &BinaryExpression{Op: op, LHS: lhs, RHS: rhs}
}

func (b *Builder) Ternary(cond, ifTrue, ifFalse Node) *ConditionalExpression {
	return &ConditionalExpression{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Assign creates name = rhs.
func (b *Builder) Assign(name string, rhs Node) *AssignmentStatement {
	return b.AssignOp(AssignEquals, b.Id(name), rhs)
}

// AssignOp creates an assignment with an arbitrary operator and target.
func (b *Builder) AssignOp(op AssignOp, lhs, rhs Node) *AssignmentStatement {
	return &AssignmentStatement{Op: op, LHS: lhs, RHS: rhs}
}

// When creates a guarded clause.
func (b *Builder) When(cond Node, body ...Node) Clause {
	return Clause{Cond: cond, Body: body}
}

// Otherwise creates an else clause.
func (b *Builder) Otherwise(body ...Node) Clause {
	return Clause{Body: body}
}

// If creates a selection statement from clauses. Only the last clause may be an else.
func (b *Builder) If(clauses ...Clause) *SelectionStatement {
	n := &SelectionStatement{}
	for _, c := range clauses {
		if c.Cond != nil {
			n.Conditions = append(n.Conditions, c.Cond)
		}
		n.Blocks = append(n.Blocks, c.Body)
	}
	return n
}

// Foreach creates a loop binding ids over expr.
func (b *Builder) Foreach(ids []string, expr Node, body ...Node) *IterationStatement {
	n := &IterationStatement{Expr: expr, Block: body}
	for _, id := range ids {
		n.IDs = append(n.IDs, b.Id(id))
	}
	return n
}

func (b *Builder) Break() *BreakNode       { return &BreakNode{} }
func (b *Builder) Continue() *ContinueNode { return &ContinueNode{} }

// Error creates a parser recovery node.
func (b *Builder) Error(msg string) *ErrorNode { return &ErrorNode{Message: msg} }
