package analyzer

import (
	"fmt"
	"strings"

	"github.com/mesonlint/mesonlint/pkg/ast"
	"github.com/mesonlint/mesonlint/pkg/types"
)

// readOnly are the predefined variables that may not be reassigned.
var readOnly = map[string]bool{
	"meson":          true,
	"build_machine":  true,
	"host_machine":   true,
	"target_machine": true,
}

// visit infers the types of n and its children and records diagnostics.
func (r *run) visit(n ast.Node) {
	switch n := n.(type) {
	case nil:
	case *ast.BuildDefinition:
		r.statements(n.Stmts)
	case *ast.IntegerLiteral:
		n.SetTypes(types.Set{types.Int})
	case *ast.BooleanLiteral:
		n.SetTypes(types.Set{types.Bool})
	case *ast.StringLiteral:
		n.SetTypes(types.Set{types.Str})
		if n.Format {
			r.checkFormatString(n)
		}
	case *ast.ArrayLiteral:
		var elems types.Set
		for _, e := range n.Elems {
			r.visit(e)
			elems = append(elems, e.Types()...)
		}
		n.SetTypes(types.Set{types.List(elems...)})
	case *ast.DictionaryLiteral:
		r.visitDict(n)
	case *ast.KeyValueItem:
		r.visit(n.Key)
		r.visit(n.Value)
		n.SetTypes(n.Value.Types())
	case *ast.IdExpression:
		r.visitID(n)
	case *ast.FunctionExpression:
		r.visitFunction(n)
	case *ast.MethodExpression:
		r.visitMethod(n)
	case *ast.ArgumentList:
		for _, a := range n.Args {
			r.visit(a)
		}
	case *ast.KeywordItem:
		r.visit(n.Value)
		if n.Value != nil {
			n.SetTypes(n.Value.Types())
		}
		r.checkKeywordDeprecation(n)
	case *ast.SubscriptExpression:
		r.visitSubscript(n)
	case *ast.UnaryExpression:
		r.visit(n.Operand)
		if n.Op == ast.UnaryMinus {
			n.SetTypes(types.Set{types.Int})
		} else {
			n.SetTypes(types.Set{types.Bool})
		}
	case *ast.BinaryExpression:
		r.visitBinary(n)
	case *ast.ConditionalExpression:
		r.visit(n.Cond)
		r.visit(n.IfTrue)
		r.visit(n.IfFalse)
		n.SetTypes(types.Union(n.IfTrue.Types(), n.IfFalse.Types()))
		r.checkBoolean(n.Cond, n)
	case *ast.AssignmentStatement:
		r.visitAssignment(n)
	case *ast.SelectionStatement:
		r.visitSelection(n)
	case *ast.IterationStatement:
		r.visitIteration(n)
	case *ast.BreakNode:
		r.checkLoopControl(n, "break")
	case *ast.ContinueNode:
		r.checkLoopControl(n, "continue")
	case *ast.ErrorNode:
		r.sink.Error(n, n.Message)
	case *ast.SourceFile:
		r.visitFile(n)
	}
}

func (r *run) visitDict(n *ast.DictionaryLiteral) {
	var values types.Set
	seen := make(map[string]bool, len(n.Items))
	for _, item := range n.Items {
		r.visit(item)
		kv, ok := item.(*ast.KeyValueItem)
		if !ok {
			continue
		}
		values = append(values, kv.Value.Types()...)
		sl, ok := kv.Key.(*ast.StringLiteral)
		if !ok {
			continue
		}
		if seen[sl.Value] {
			r.sink.Error(sl, fmt.Sprintf("duplicate key %q", sl.Value))
			continue
		}
		seen[sl.Value] = true
	}
	n.SetTypes(types.Set{types.Dict(values...)})
}

func (r *run) visitID(n *ast.IdExpression) {
	scoped, known := r.scope.Lookup(n.Name)
	n.SetTypes(types.Union(r.evalStack(n.Name), scoped))
	r.markUsed(n.Name)
	if !known && !r.ignored(n.Name) {
		r.sink.Error(n, "unknown identifier `"+n.Name+"`")
	}
	r.sink.RegisterIdentifier(n)
}

func (r *run) ignored(name string) bool {
	for _, s := range r.ignoreUnknown {
		if s == name {
			return true
		}
	}
	return false
}

// markUsed drops every pending unused-assignment record of name.
func (r *run) markUsed(name string) {
	for i, frame := range r.needingUse {
		kept := frame[:0]
		for _, id := range frame {
			if id.Name != name {
				kept = append(kept, id)
			}
		}
		r.needingUse[i] = kept
	}
}

func (r *run) needUse(id *ast.IdExpression) {
	if len(r.needingUse) == 0 {
		return
	}
	top := len(r.needingUse) - 1
	r.needingUse[top] = append(r.needingUse[top], id)
}

func (r *run) visitSubscript(n *ast.SubscriptExpression) {
	r.visit(n.Outer)
	r.visit(n.Inner)
	var out types.Set
	for _, t := range n.Outer.Types() {
		switch {
		case t.Kind() == types.KindDict, t.Kind() == types.KindList:
			out = append(out, t.Elems()...)
		case t.Kind() == types.KindStr:
			out = append(out, types.Str)
		case t.Kind() == types.KindObject && t.Name() == "custom_tgt":
			out = append(out, types.CustomTargetIndex)
		}
	}
	n.SetTypes(types.Dedup(out))
	r.sink.RegisterSubscript(n)
}

func (r *run) visitBinary(n *ast.BinaryExpression) {
	r.visit(n.LHS)
	r.visit(n.RHS)
	lhs, rhs := n.LHS.Types(), n.RHS.Types()
	if n.Op == ast.BinaryInvalid {
		n.SetTypes(types.Union(lhs, rhs))
		r.sink.Error(n, "missing binary operator")
		return
	}
	out, errs := evalBinary(n.Op, lhs, rhs)
	total := len(lhs) * len(rhs)
	if total != 0 && errs == total && !isSpecial(lhs) && !isSpecial(rhs) {
		r.sink.Error(n, fmt.Sprintf("unable to apply operator `%s` to types %s and %s",
			n.Op, types.Join(lhs), types.Join(rhs)))
	}
	n.SetTypes(types.Dedup(out))
	if n.Op == ast.BinaryEq || n.Op == ast.BinaryNe {
		if me, ok := n.LHS.(*ast.MethodExpression); ok {
			if sl, ok := n.RHS.(*ast.StringLiteral); ok {
				r.checkWellKnownComparison(me, sl)
			}
		} else if me, ok := n.RHS.(*ast.MethodExpression); ok {
			if sl, ok := n.LHS.(*ast.StringLiteral); ok {
				r.checkWellKnownComparison(me, sl)
			}
		}
	}
}

// isType reports whether t is the named type or the wildcard.
func isType(t types.Type, name string) bool {
	return t.Kind() == types.KindAny || t.Name() == name
}

// isSpecial matches the three-member union of any, list(any) and dict(any)
// produced by fully unresolved receivers.
func isSpecial(ts types.Set) bool {
	if len(ts) != 3 {
		return false
	}
	for _, t := range ts {
		if !t.IsWildcard() {
			return false
		}
	}
	return true
}

// evalBinary applies op to every pair of members. It returns the result
// types and the number of pairs op does not apply to. When no pair applies,
// the left-hand types are returned.
func evalBinary(op ast.BinaryOp, lhs, rhs types.Set) (types.Set, int) {
	var out types.Set
	var errs int
	for _, l := range lhs {
		for _, rt := range rhs {
			t, ok := evalPair(op, l, rt)
			if !ok {
				errs++
				continue
			}
			out = append(out, t)
		}
	}
	if errs == len(lhs)*len(rhs) {
		return lhs, errs
	}
	return out, errs
}

func evalPair(op ast.BinaryOp, l, r types.Type) (types.Type, bool) {
	if l.Kind() == types.KindAny && r.Kind() == types.KindAny {
		return types.Type{}, false
	}
	both := func(name string) bool { return isType(l, name) && isType(r, name) }
	switch op {
	case ast.BinaryAnd, ast.BinaryOr:
		if both("bool") {
			return types.Bool, true
		}
	case ast.BinaryDiv:
		if both("int") {
			return types.Int, true
		}
		if both("str") {
			return types.Str, true
		}
	case ast.BinaryEq, ast.BinaryNe:
		if both("int") || both("str") || both("bool") || both("dict") || both("list") {
			return types.Bool, true
		}
		if l.Kind() == types.KindObject && r.Kind() == types.KindObject && l.Name() == r.Name() {
			return types.Bool, true
		}
	case ast.BinaryLt, ast.BinaryLe, ast.BinaryGt, ast.BinaryGe:
		if both("int") || both("str") {
			return types.Bool, true
		}
	case ast.BinaryIn, ast.BinaryNotIn:
		return types.Bool, true
	case ast.BinaryMinus, ast.BinaryMod, ast.BinaryMul:
		if both("int") {
			return types.Int, true
		}
	case ast.BinaryPlus:
		switch {
		case both("int"):
			return types.Int, true
		case both("str"):
			return types.Str, true
		case l.Kind() == types.KindList && r.Kind() == types.KindList:
			return types.List(append(append(types.Set{}, l.Elems()...), r.Elems()...)...), true
		case l.Kind() == types.KindList:
			return types.List(append(append(types.Set{}, l.Elems()...), r)...), true
		case l.Kind() == types.KindDict && r.Kind() == types.KindDict:
			return types.Dict(append(append(types.Set{}, l.Elems()...), r.Elems()...)...), true
		case l.Kind() == types.KindDict:
			return types.Dict(append(append(types.Set{}, l.Elems()...), r)...), true
		}
	}
	return types.Type{}, false
}

func (r *run) visitAssignment(n *ast.AssignmentStatement) {
	lhs, isID := n.LHS.(*ast.IdExpression)
	if n.Op != ast.AssignEquals || !isID {
		r.visit(n.LHS)
	}
	r.visit(n.RHS)
	if !isID {
		r.sink.Error(n.LHS, "can only assign to variables")
		return
	}
	rhs := n.RHS.Types()
	if len(rhs) == 0 && r.isVoidCall(n.RHS) {
		r.sink.Error(n.LHS, "cannot assign from void")
		return
	}

	if n.Op == ast.AssignEquals {
		if readOnly[lhs.Name] {
			r.sink.Error(n, "attempted to re-assign to existing, read-only variable")
			r.sink.RegisterIdentifier(lhs)
			return
		}
		lhs.SetTypes(rhs)
		r.checkIdentifier(lhs)
		r.bind(lhs.Name, rhs)
		r.needUse(lhs)
		r.sink.RegisterIdentifier(lhs)
		return
	}

	before := lhs.Types()
	out, errs := evalBinary(n.Op.Binary(), before, rhs)
	total := len(before) * len(rhs)
	if total != 0 && errs == total && !isSpecial(before) && !isSpecial(rhs) {
		r.sink.Error(n, fmt.Sprintf("unable to apply operator `%s` to types %s and %s",
			n.Op, types.Join(before), types.Join(rhs)))
	}
	result := types.Dedup(out)
	if len(result) == 0 && len(rhs) == 0 {
		if prev, ok := r.scope.Lookup(lhs.Name); ok {
			result = types.Dedup(prev)
		}
	}
	lhs.SetTypes(result)
	r.bind(lhs.Name, result)
}

// isVoidCall reports whether n is a resolved call without a return value
// whose name does not start with "install_".
func (r *run) isVoidCall(n ast.Node) bool {
	fn, ok := r.sink.Call(n)
	if !ok || len(fn.Returns) > 0 {
		return false
	}
	return !strings.HasPrefix(fn.Name, "install_")
}
