package ast

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// fileDump is the on-disk form of a parsed build file. JSON dumps are read
// through the same path since they are valid YAML.
type fileDump struct {
	Path string     `yaml:"path" validate:"required"`
	Body []*rawNode `yaml:"body" validate:"dive,required"`
}

type rawNode struct {
	Kind    string       `yaml:"kind" validate:"required,oneof=int str bool array dict id call method kw index unary binary ternary assign if foreach break continue error"`
	Range   *Range       `yaml:"range"`
	Value   yaml.Node    `yaml:"value"`
	Format  bool         `yaml:"format"`
	Name    string       `yaml:"name"`
	Message string       `yaml:"message"`
	Op      string       `yaml:"op" validate:"omitempty,oneof=- not ! and or + * / % == != < <= > >= in 'not in' = += -= *= /= %="`
	Object  *rawNode     `yaml:"object"`
	Args    []*rawNode   `yaml:"args" validate:"dive,required"`
	Elems   []*rawNode   `yaml:"elems" validate:"dive,required"`
	Items   []*rawItem   `yaml:"items" validate:"dive,required"`
	Expr    *rawNode     `yaml:"expr"`
	Operand *rawNode     `yaml:"operand"`
	LHS     *rawNode     `yaml:"lhs"`
	RHS     *rawNode     `yaml:"rhs"`
	Cond    *rawNode     `yaml:"cond"`
	Then    *rawNode     `yaml:"then"`
	Else    *rawNode     `yaml:"else"`
	IDs     []string     `yaml:"ids" validate:"dive,required"`
	Body    []*rawNode   `yaml:"body" validate:"dive,required"`
	Clauses []*rawClause `yaml:"branches" validate:"dive,required"`
}

type rawItem struct {
	Key   *rawNode `yaml:"key" validate:"required"`
	Value *rawNode `yaml:"value" validate:"required"`
}

type rawClause struct {
	Cond *rawNode   `yaml:"cond"`
	Body []*rawNode `yaml:"body" validate:"dive,required"`
}

var dumpValidator = validator.New()

// Decode reads a tree dump produced by an external parser. Parent links are
// set on the returned file.
func Decode(data []byte) (*SourceFile, error) {
	var dump fileDump
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse tree dump: %w", err)
	}
	if err := dumpValidator.Struct(&dump); err != nil {
		return nil, fmt.Errorf("invalid tree dump: %w", err)
	}

	d := &decoder{}
	stmts, err := d.nodes(dump.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dump.Path, err)
	}
	body := &BuildDefinition{Stmts: stmts}
	if len(stmts) > 0 {
		body.setRange(Span(stmts[0].Range(), stmts[len(stmts)-1].Range()))
	}
	f := &SourceFile{Path: dump.Path, Body: body}
	f.setRange(body.Range())
	SetParents(f)
	return f, nil
}

type decoder struct{}

func (d *decoder) nodes(raws []*rawNode) ([]Node, error) {
	out := make([]Node, 0, len(raws))
	for _, r := range raws {
		n, err := d.node(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (d *decoder) required(r *rawNode, field string, child *rawNode) (Node, error) {
	if child == nil {
		return nil, fmt.Errorf("%s node at %d:%d is missing %s", r.Kind, r.line(), r.column(), field)
	}
	return d.node(child)
}

func (r *rawNode) line() int {
	if r.Range == nil {
		return 0
	}
	return r.Range.Start.Line
}

func (r *rawNode) column() int {
	if r.Range == nil {
		return 0
	}
	return r.Range.Start.Column
}

func (d *decoder) argList(r *rawNode) (*ArgumentList, error) {
	args, err := d.nodes(r.Args)
	if err != nil {
		return nil, err
	}
	al := &ArgumentList{Args: args}
	if len(args) > 0 {
		al.setRange(Span(args[0].Range(), args[len(args)-1].Range()))
	} else if r.Range != nil {
		al.setRange(Range{Start: r.Range.End, End: r.Range.End})
	}
	return al, nil
}

func (d *decoder) id(r *rawNode) (*IdExpression, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("%s node at %d:%d is missing name", r.Kind, r.line(), r.column())
	}
	n := &IdExpression{Name: r.Name}
	if r.Range != nil {
		n.setRange(*r.Range)
	}
	return n, nil
}

func (d *decoder) node(r *rawNode) (Node, error) {
	var (
		n   Node
		err error
	)
	switch r.Kind {
	case "int":
		var v int64
		if err = r.Value.Decode(&v); err == nil {
			n = &IntegerLiteral{Value: v}
		}
	case "str":
		var v string
		if err = r.Value.Decode(&v); err == nil {
			n = &StringLiteral{Value: v, Format: r.Format}
		}
	case "bool":
		var v bool
		if err = r.Value.Decode(&v); err == nil {
			n = &BooleanLiteral{Value: v}
		}
	case "array":
		var elems []Node
		if elems, err = d.nodes(r.Elems); err == nil {
			n = &ArrayLiteral{Elems: elems}
		}
	case "dict":
		dict := &DictionaryLiteral{}
		for _, it := range r.Items {
			k, kerr := d.node(it.Key)
			if kerr != nil {
				return nil, kerr
			}
			v, verr := d.node(it.Value)
			if verr != nil {
				return nil, verr
			}
			kv := &KeyValueItem{Key: k, Value: v}
			kv.setRange(Span(k.Range(), v.Range()))
			dict.Items = append(dict.Items, kv)
		}
		n = dict
	case "id":
		n, err = d.id(r)
	case "call":
		call := &FunctionExpression{}
		if call.ID, err = d.id(r); err == nil {
			call.Args, err = d.argList(r)
		}
		n = call
	case "method":
		m := &MethodExpression{}
		if m.Obj, err = d.required(r, "object", r.Object); err != nil {
			return nil, err
		}
		if m.ID, err = d.id(r); err == nil {
			m.Args, err = d.argList(r)
		}
		n = m
	case "kw":
		kw := &KeywordItem{}
		var key *IdExpression
		if key, err = d.id(r); err == nil {
			kw.Key = key
			kw.Value, err = d.required(r, "expr", r.Expr)
		}
		n = kw
	case "index":
		ix := &SubscriptExpression{}
		if ix.Outer, err = d.required(r, "object", r.Object); err == nil {
			ix.Inner, err = d.required(r, "expr", r.Expr)
		}
		n = ix
	case "unary":
		u := &UnaryExpression{Op: UnaryOp(r.Op)}
		u.Operand, err = d.required(r, "operand", r.Operand)
		n = u
	case "binary":
		b := &BinaryExpression{Op: BinaryOp(r.Op)}
		if b.LHS, err = d.required(r, "lhs", r.LHS); err == nil {
			b.RHS, err = d.required(r, "rhs", r.RHS)
		}
		n = b
	case "ternary":
		c := &ConditionalExpression{}
		if c.Cond, err = d.required(r, "cond", r.Cond); err == nil {
			if c.IfTrue, err = d.required(r, "then", r.Then); err == nil {
				c.IfFalse, err = d.required(r, "else", r.Else)
			}
		}
		n = c
	case "assign":
		op := AssignOp(r.Op)
		if op == "" {
			op = AssignEquals
		}
		a := &AssignmentStatement{Op: op}
		if a.LHS, err = d.required(r, "lhs", r.LHS); err == nil {
			a.RHS, err = d.required(r, "rhs", r.RHS)
		}
		n = a
	case "if":
		sel := &SelectionStatement{}
		for i, c := range r.Clauses {
			if c.Cond == nil && i != len(r.Clauses)-1 {
				return nil, fmt.Errorf("if node at %d:%d has an else branch before the last branch", r.line(), r.column())
			}
			if c.Cond != nil {
				cond, cerr := d.node(c.Cond)
				if cerr != nil {
					return nil, cerr
				}
				sel.Conditions = append(sel.Conditions, cond)
			}
			body, berr := d.nodes(c.Body)
			if berr != nil {
				return nil, berr
			}
			sel.Blocks = append(sel.Blocks, body)
		}
		n = sel
	case "foreach":
		it := &IterationStatement{}
		for _, name := range r.IDs {
			it.IDs = append(it.IDs, &IdExpression{Name: name})
		}
		if it.Expr, err = d.required(r, "expr", r.Expr); err == nil {
			it.Block, err = d.nodes(r.Body)
		}
		n = it
	case "break":
		n = &BreakNode{}
	case "continue":
		n = &ContinueNode{}
	case "error":
		n = &ErrorNode{Message: r.Message}
	default:
		return nil, fmt.Errorf("unknown node kind %q", r.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s node at %d:%d: %w", r.Kind, r.line(), r.column(), err)
	}
	if r.Range != nil {
		n.header().setRange(*r.Range)
	}
	return n, nil
}
