// Package eval implements the engine's pure expression evaluator (spec
// §4.6, component G): it walks expression AST nodes against a read-only
// state view and a function registry, never mutating either.
package eval

import (
	"errors"
	"math"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// StateReader is the read-only state view the evaluator needs; a
// *state.State satisfies it directly.
type StateReader interface {
	Get(name string) (state.Value, bool)
}

// Functions dispatches a named function call to a bound implementation.
// lookahead is true when the call happens while the runtime is
// speculatively evaluating a choice condition (spec §4.7); an
// implementation should refuse non-lookahead-safe functions in that mode
// by returning ErrLookaheadBlocked.
type Functions interface {
	Call(name string, args []state.Value, lookahead bool) (state.Value, error)
}

// ErrLookaheadBlocked is returned by a Functions implementation when a
// function is not safe to call during speculative (lookahead)
// evaluation. It is an internal control-flow signal, not a member of
// the werrors taxonomy: EvaluateCondition converts it into a plain
// `false` result for the enclosing condition rather than propagating it
// as a failure, so it never reaches a host.
var ErrLookaheadBlocked = errors.New("function not safe to call during lookahead")

// NoFunctions is a Functions implementation with no bound functions;
// every call fails with werrors.ErrNotFound.
var NoFunctions Functions = noFunctions{}

type noFunctions struct{}

func (noFunctions) Call(name string, _ []state.Value, _ bool) (state.Value, error) {
	return state.Nil(), werrors.ErrNotFound
}

// Evaluate computes expr's value against s and funcs. It never mutates
// either and, for a pure expression, evaluating the same node twice
// against an unchanged state yields equal results (spec §8).
func Evaluate(expr ast.Node, s StateReader, funcs Functions) (state.Value, error) {
	return evaluate(expr, s, funcs, false)
}

// EvaluateCondition evaluates expr in lookahead mode: a call to a
// function that isn't lookahead-safe does not error, it makes the whole
// condition evaluate to false (spec §4.7).
func EvaluateCondition(expr ast.Node, s StateReader, funcs Functions) (bool, error) {
	v, err := evaluate(expr, s, funcs, true)
	if errors.Is(err, ErrLookaheadBlocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func evaluate(expr ast.Node, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return literalValue(n), nil
	case *ast.VariableRef:
		return evalVariableRef(n, s, funcs, lookahead)
	case *ast.UnaryExpr:
		return evalUnary(n, s, funcs, lookahead)
	case *ast.BinaryExpr:
		return evalBinary(n, s, funcs, lookahead)
	case *ast.FunctionCall:
		return evalCall(n, s, funcs, lookahead)
	case *ast.ListLiteral:
		return evalList(n, s, funcs, lookahead)
	default:
		return state.Nil(), werrors.ErrType
	}
}

func literalValue(lit *ast.Literal) state.Value {
	switch lit.LKind {
	case ast.LiteralNumber:
		return state.Number(lit.Value.(float64))
	case ast.LiteralString:
		return state.String(lit.Value.(string))
	case ast.LiteralBool:
		return state.Bool(lit.Value.(bool))
	default:
		return state.Nil()
	}
}

func evalVariableRef(ref *ast.VariableRef, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	v, ok := s.Get(ref.Name)
	if !ok {
		v = state.Nil()
	}
	if ref.Index == nil {
		return v, nil
	}
	idx, err := evaluate(ref.Index, s, funcs, lookahead)
	if err != nil {
		return state.Nil(), err
	}
	return indexValue(v, idx)
}

func indexValue(v, idx state.Value) (state.Value, error) {
	switch v.Kind() {
	case state.KindList:
		list, _ := v.AsList()
		n, ok := idx.AsNumber()
		if !ok {
			return state.Nil(), werrors.ErrType
		}
		i := int(n)
		if i < 0 || i >= len(list) {
			return state.Nil(), werrors.ErrNotFound
		}
		return list[i], nil
	case state.KindMap:
		m, _ := v.AsMap()
		key, ok := idx.AsString()
		if !ok {
			return state.Nil(), werrors.ErrType
		}
		val, ok := m[key]
		if !ok {
			return state.Nil(), werrors.ErrNotFound
		}
		return val, nil
	default:
		return state.Nil(), werrors.ErrType
	}
}

func evalUnary(u *ast.UnaryExpr, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	operand, err := evaluate(u.Operand, s, funcs, lookahead)
	if err != nil {
		return state.Nil(), err
	}
	switch u.Op {
	case "not":
		return state.Bool(!operand.Truthy()), nil
	case "-":
		n, ok := operand.AsNumber()
		if !ok {
			return state.Nil(), werrors.ErrType
		}
		return state.Number(-n), nil
	default:
		return state.Nil(), werrors.ErrType
	}
}

func evalBinary(b *ast.BinaryExpr, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	switch b.Op {
	case "or":
		left, err := evaluate(b.Left, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		if left.Truthy() {
			return state.Bool(true), nil
		}
		right, err := evaluate(b.Right, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		return state.Bool(right.Truthy()), nil
	case "and":
		left, err := evaluate(b.Left, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		if !left.Truthy() {
			return state.Bool(false), nil
		}
		right, err := evaluate(b.Right, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		return state.Bool(right.Truthy()), nil
	}

	left, err := evaluate(b.Left, s, funcs, lookahead)
	if err != nil {
		return state.Nil(), err
	}
	right, err := evaluate(b.Right, s, funcs, lookahead)
	if err != nil {
		return state.Nil(), err
	}
	return applyBinaryOp(b.Op, left, right)
}

func applyBinaryOp(op string, left, right state.Value) (state.Value, error) {
	switch op {
	case "==":
		return state.Bool(compatibleComparison(left, right) && left.Equal(right)), nil
	case "!=":
		return state.Bool(!(compatibleComparison(left, right) && left.Equal(right))), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(op, left, right)
	case "+":
		return add(left, right)
	case "-", "*", "/", "%":
		return arithmetic(op, left, right)
	default:
		return state.Nil(), werrors.ErrType
	}
}

// compatibleComparison reports whether two values are comparable at all
// for ==/!=: same kind, or one of them nil (nil is comparable to
// anything and only equal to nil).
func compatibleComparison(a, b state.Value) bool {
	return a.Kind() == b.Kind() || a.Kind() == state.KindNil || b.Kind() == state.KindNil
}

// compareOrdered implements <, <=, >, >=. Ordering is only defined
// between two numbers; any other combination is an "incompatible types"
// comparison, which the spec requires to return false rather than error.
func compareOrdered(op string, left, right state.Value) (state.Value, error) {
	ln, lok := left.AsNumber()
	rn, rok := right.AsNumber()
	if !lok || !rok {
		return state.Bool(false), nil
	}
	switch op {
	case "<":
		return state.Bool(ln < rn), nil
	case "<=":
		return state.Bool(ln <= rn), nil
	case ">":
		return state.Bool(ln > rn), nil
	case ">=":
		return state.Bool(ln >= rn), nil
	}
	return state.Bool(false), nil
}

// add implements "+": numeric addition or string concatenation. Mixing
// other kinds is a type error, not a silent coercion (spec §4.6).
func add(left, right state.Value) (state.Value, error) {
	if ln, lok := left.AsNumber(); lok {
		if rn, rok := right.AsNumber(); rok {
			return state.Number(ln + rn), nil
		}
		return state.Nil(), werrors.ErrType
	}
	if ls, lok := left.AsString(); lok {
		if rs, rok := right.AsString(); rok {
			return state.String(ls + rs), nil
		}
		return state.Nil(), werrors.ErrType
	}
	return state.Nil(), werrors.ErrType
}

func arithmetic(op string, left, right state.Value) (state.Value, error) {
	ln, lok := left.AsNumber()
	rn, rok := right.AsNumber()
	if !lok || !rok {
		return state.Nil(), werrors.ErrType
	}
	switch op {
	case "-":
		return state.Number(ln - rn), nil
	case "*":
		return state.Number(ln * rn), nil
	case "/":
		if rn == 0 {
			return state.Nil(), werrors.ErrDomain
		}
		return state.Number(ln / rn), nil
	case "%":
		if rn == 0 {
			return state.Nil(), werrors.ErrDomain
		}
		return state.Number(math.Mod(ln, rn)), nil
	default:
		return state.Nil(), werrors.ErrType
	}
}

func evalCall(call *ast.FunctionCall, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	args := make([]state.Value, len(call.Args))
	for i, a := range call.Args {
		v, err := evaluate(a, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		args[i] = v
	}
	return funcs.Call(call.Name, args, lookahead)
}

func evalList(list *ast.ListLiteral, s StateReader, funcs Functions, lookahead bool) (state.Value, error) {
	out := make([]state.Value, len(list.Elements))
	for i, e := range list.Elements {
		v, err := evaluate(e, s, funcs, lookahead)
		if err != nil {
			return state.Nil(), err
		}
		out[i] = v
	}
	return state.List(out), nil
}
