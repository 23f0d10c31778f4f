package runtime

import (
	"github.com/weave-lang/weave/pkg/eval"
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// ExternalFunc is a host- or plugin-bound function reachable from Script
// expressions (spec §4.7 "External functions", §6.2 bind_external_function).
type ExternalFunc func(args []state.Value) (state.Value, error)

type boundFunction struct {
	fn            ExternalFunc
	lookaheadSafe bool
}

// functionRegistry implements eval.Functions over a set of named,
// host-bound callables, enforcing the lookahead-safety rule: during
// speculative (choice-condition) evaluation only functions bound with
// lookahead_safe=true may run.
type functionRegistry struct {
	bound map[string]boundFunction
}

func newFunctionRegistry() *functionRegistry {
	return &functionRegistry{bound: map[string]boundFunction{}}
}

func (r *functionRegistry) bind(name string, fn ExternalFunc, lookaheadSafe bool) {
	r.bound[name] = boundFunction{fn: fn, lookaheadSafe: lookaheadSafe}
}

func (r *functionRegistry) Call(name string, args []state.Value, lookahead bool) (state.Value, error) {
	bf, ok := r.bound[name]
	if !ok {
		return state.Nil(), werrors.ErrNotFound
	}
	if lookahead && !bf.lookaheadSafe {
		return state.Nil(), eval.ErrLookaheadBlocked
	}
	return bf.fn(args)
}
