package main

import (
	"fmt"

	"github.com/weave-lang/weave/pkg/state"
)

// valueToJSON converts a state.Value into the plain Go value
// encoding/json already knows how to marshal, mirroring the tagged
// conversion pkg/format uses for AST nodes.
func valueToJSON(v state.Value) any {
	switch v.Kind() {
	case state.KindNil:
		return nil
	case state.KindBool:
		b, _ := v.AsBool()
		return b
	case state.KindNumber:
		n, _ := v.AsNumber()
		return n
	case state.KindString:
		s, _ := v.AsString()
		return s
	case state.KindList:
		list, _ := v.AsList()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = valueToJSON(item)
		}
		return out
	case state.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = valueToJSON(item)
		}
		return out
	default:
		return nil
	}
}

// jsonToValue is the inverse of valueToJSON, used to decode a variable
// write request's body into a state.Value.
func jsonToValue(v any) (state.Value, error) {
	switch val := v.(type) {
	case nil:
		return state.Nil(), nil
	case bool:
		return state.Bool(val), nil
	case float64:
		return state.Number(val), nil
	case string:
		return state.String(val), nil
	case []any:
		items := make([]state.Value, len(val))
		for i, item := range val {
			sv, err := jsonToValue(item)
			if err != nil {
				return state.Value{}, err
			}
			items[i] = sv
		}
		return state.List(items), nil
	case map[string]any:
		m := make(map[string]state.Value, len(val))
		for k, item := range val {
			sv, err := jsonToValue(item)
			if err != nil {
				return state.Value{}, err
			}
			m[k] = sv
		}
		return state.Map(m), nil
	default:
		return state.Value{}, fmt.Errorf("unsupported JSON value of type %T", v)
	}
}
