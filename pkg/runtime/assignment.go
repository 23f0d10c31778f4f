package runtime

import (
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// combineAssignment computes the new value of a `~ name op expr`
// assignment from the variable's current value and the evaluated
// right-hand side. An unset variable reads as nil and compound
// assignment against nil seeds the variable with rhs's own kind, so
// `~ count += 1` works the first time a counter is touched.
func combineAssignment(op string, cur, rhs state.Value) (state.Value, error) {
	if op == "=" {
		return rhs, nil
	}
	if op == "+=" {
		if cur.Kind() == state.KindNil {
			return rhs, nil
		}
		if cn, ok := cur.AsNumber(); ok {
			if rn, ok := rhs.AsNumber(); ok {
				return state.Number(cn + rn), nil
			}
			return state.Nil(), werrors.ErrType
		}
		if cs, ok := cur.AsString(); ok {
			if rs, ok := rhs.AsString(); ok {
				return state.String(cs + rs), nil
			}
			return state.Nil(), werrors.ErrType
		}
		return state.Nil(), werrors.ErrType
	}

	cn, ok := cur.AsNumber()
	if !ok {
		if cur.Kind() == state.KindNil {
			cn = 0
		} else {
			return state.Nil(), werrors.ErrType
		}
	}
	rn, ok := rhs.AsNumber()
	if !ok {
		return state.Nil(), werrors.ErrType
	}
	switch op {
	case "-=":
		return state.Number(cn - rn), nil
	case "*=":
		return state.Number(cn * rn), nil
	case "/=":
		if rn == 0 {
			return state.Nil(), werrors.ErrDomain
		}
		return state.Number(cn / rn), nil
	default:
		return state.Nil(), werrors.ErrType
	}
}
