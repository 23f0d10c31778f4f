package runtime

import (
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// FormatVersion is the current snapshot envelope version (spec §6.4);
// restore_state rejects a snapshot carrying a newer one.
const FormatVersion = 1

// Snapshot is the opaque, byte-stable save_state() result: a
// deterministically-marshalled structpb.Struct envelope (spec §6.4,
// SPEC_FULL §6.4).
type Snapshot []byte

// SaveState captures story_id, sorted state variables, current_passage_id,
// the ordered tunnel stack, sorted consumed_onces, sorted alive_flows, a
// descriptor for any control node deferred across a suspended Continue
// call, and the engine's resting state.
//
// This implementation resumes every passage referenced by the snapshot
// (current_passage_id and each tunnel_stack frame) from the start of its
// content rather than a precise mid-passage offset: the envelope shape
// specified has no field for a content cursor position, only a passage
// id, so restore_state approximates a paused tunnel frame as "about to
// re-enter this passage" rather than "resuming mid-way through it".
func (e *Engine) SaveState() (Snapshot, error) {
	if e.story == nil {
		return nil, werrors.ErrInvalidState
	}

	names := e.vars.Names()
	values := e.vars.Snapshot().Values()
	varsStruct := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	for _, name := range names {
		sv, err := valueToStruct(values[name])
		if err != nil {
			return nil, err
		}
		varsStruct.Fields[name] = sv
	}

	tunnelStack := make([]*structpb.Value, len(e.callStack))
	for i, f := range e.callStack {
		tunnelStack[i] = structpb.NewStringValue(f.passageID)
	}

	onceKeys := make([]string, 0, len(e.consumedOnces))
	for k, consumed := range e.consumedOnces {
		if consumed {
			onceKeys = append(onceKeys, k)
		}
	}
	sort.Strings(onceKeys)
	onceVals := make([]*structpb.Value, len(onceKeys))
	for i, k := range onceKeys {
		onceVals[i] = structpb.NewStringValue(k)
	}

	flowNames := make([]string, 0, len(e.aliveFlows))
	for f, alive := range e.aliveFlows {
		if alive {
			flowNames = append(flowNames, f)
		}
	}
	sort.Strings(flowNames)
	flowVals := make([]*structpb.Value, len(flowNames))
	for i, f := range flowNames {
		flowVals[i] = structpb.NewStringValue(f)
	}

	pendingStruct := pendingToStruct(e.pending)

	envelope := &structpb.Struct{Fields: map[string]*structpb.Value{
		"story_id":           structpb.NewStringValue(e.story.ID),
		"state_variables":    structpb.NewStructValue(varsStruct),
		"current_passage_id": structpb.NewStringValue(e.current),
		"tunnel_stack":       structpb.NewListValue(&structpb.ListValue{Values: tunnelStack}),
		"consumed_onces":     structpb.NewListValue(&structpb.ListValue{Values: onceVals}),
		"alive_flows":        structpb.NewListValue(&structpb.ListValue{Values: flowVals}),
		"continue_buffer":    structpb.NewStructValue(pendingStruct),
		"format_version":     structpb.NewNumberValue(float64(FormatVersion)),
		"engine_state":       structpb.NewStringValue(string(e.state)),
	}}

	return proto.MarshalOptions{Deterministic: true}.Marshal(envelope)
}

// RestoreState validates story_id and the snapshot's format version,
// then reinstalls every field atomically: on any validation failure the
// engine is left completely unchanged.
func (e *Engine) RestoreState(snap Snapshot) error {
	if e.story == nil {
		return werrors.ErrInvalidState
	}

	var envelope structpb.Struct
	if err := proto.Unmarshal(snap, &envelope); err != nil {
		return werrors.ErrValidation
	}
	fields := envelope.GetFields()

	if fields["story_id"].GetStringValue() != e.story.ID {
		return werrors.ErrValidation
	}
	if int(fields["format_version"].GetNumberValue()) > FormatVersion {
		return werrors.ErrValidation
	}

	newVars := map[string]state.Value{}
	for k, v := range fields["state_variables"].GetStructValue().GetFields() {
		sv, err := structToValue(v)
		if err != nil {
			return err
		}
		newVars[k] = sv
	}

	currentID := fields["current_passage_id"].GetStringValue()
	if currentID != "" {
		if _, ok := e.story.Passages[currentID]; !ok {
			return werrors.ErrNotFound
		}
	}

	tunnelVals := fields["tunnel_stack"].GetListValue().GetValues()
	newStack := make([]tunnelFrame, len(tunnelVals))
	for i, v := range tunnelVals {
		pid := v.GetStringValue()
		p, ok := e.story.Passages[pid]
		if !ok {
			return werrors.ErrNotFound
		}
		newStack[i] = tunnelFrame{passageID: pid, cursor: newCursor(p.Content)}
	}

	onceVals := fields["consumed_onces"].GetListValue().GetValues()
	newOnces := make(map[string]bool, len(onceVals))
	for _, v := range onceVals {
		newOnces[v.GetStringValue()] = true
	}

	flowVals := fields["alive_flows"].GetListValue().GetValues()
	newFlows := make(map[string]bool, len(flowVals))
	for _, v := range flowVals {
		newFlows[v.GetStringValue()] = true
	}

	pending, err := pendingFromStruct(fields["continue_buffer"].GetStructValue())
	if err != nil {
		return err
	}

	engineState := EngineState(fields["engine_state"].GetStringValue())

	// Everything validated; commit.
	e.vars.Restore(state.SnapshotFromValues(newVars))
	e.current = currentID
	e.callStack = newStack
	e.consumedOnces = newOnces
	e.aliveFlows = newFlows
	e.pending = pending
	e.gathered = nil
	e.visible = nil
	e.state = engineState

	if currentID != "" {
		e.cur = newCursor(e.story.Passages[currentID].Content)
	}
	if engineState == StateAwaitingChoice && currentID != "" {
		real, _, err := e.computeVisibleChoices(e.story.Passages[currentID], nil)
		if err != nil {
			return err
		}
		e.visible = real
	}

	e.bus.Emit(kernel.EventStateRestored, StateRestoredPayload{StoryID: e.story.ID})
	return nil
}

func pendingToStruct(node ast.Node) *structpb.Struct {
	switch n := node.(type) {
	case *ast.Divert:
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"kind":   structpb.NewStringValue("divert"),
			"target": structpb.NewStringValue(n.Target),
		}}
	case *ast.TunnelCall:
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"kind":   structpb.NewStringValue("tunnel_call"),
			"target": structpb.NewStringValue(n.Target),
		}}
	case *ast.TunnelReturn:
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"kind": structpb.NewStringValue("tunnel_return"),
		}}
	default:
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"kind": structpb.NewStringValue("none"),
		}}
	}
}

func pendingFromStruct(s *structpb.Struct) (ast.Node, error) {
	if s == nil {
		return nil, nil
	}
	fields := s.GetFields()
	switch fields["kind"].GetStringValue() {
	case "divert":
		return ast.NewDivert(source.Span{}, fields["target"].GetStringValue()), nil
	case "tunnel_call":
		return ast.NewTunnelCall(source.Span{}, fields["target"].GetStringValue()), nil
	case "tunnel_return":
		return ast.NewTunnelReturn(source.Span{}), nil
	case "none", "":
		return nil, nil
	default:
		return nil, werrors.ErrValidation
	}
}

func valueToStruct(v state.Value) (*structpb.Value, error) {
	switch v.Kind() {
	case state.KindNil:
		return structpb.NewNullValue(), nil
	case state.KindBool:
		b, _ := v.AsBool()
		return structpb.NewBoolValue(b), nil
	case state.KindNumber:
		n, _ := v.AsNumber()
		return structpb.NewNumberValue(n), nil
	case state.KindString:
		s, _ := v.AsString()
		return structpb.NewStringValue(s), nil
	case state.KindList:
		list, _ := v.AsList()
		vals := make([]*structpb.Value, len(list))
		for i, elem := range list {
			sv, err := valueToStruct(elem)
			if err != nil {
				return nil, err
			}
			vals[i] = sv
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case state.KindMap:
		m, _ := v.AsMap()
		fields := make(map[string]*structpb.Value, len(m))
		for k, elem := range m {
			sv, err := valueToStruct(elem)
			if err != nil {
				return nil, err
			}
			fields[k] = sv
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	default:
		return nil, werrors.ErrType
	}
}

func structToValue(v *structpb.Value) (state.Value, error) {
	switch k := v.GetKind().(type) {
	case nil:
		return state.Nil(), nil
	case *structpb.Value_NullValue:
		return state.Nil(), nil
	case *structpb.Value_BoolValue:
		return state.Bool(k.BoolValue), nil
	case *structpb.Value_NumberValue:
		return state.Number(k.NumberValue), nil
	case *structpb.Value_StringValue:
		return state.String(k.StringValue), nil
	case *structpb.Value_ListValue:
		elems := k.ListValue.GetValues()
		out := make([]state.Value, len(elems))
		for i, e := range elems {
			sv, err := structToValue(e)
			if err != nil {
				return state.Nil(), err
			}
			out[i] = sv
		}
		return state.List(out), nil
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		out := make(map[string]state.Value, len(fields))
		for key, e := range fields {
			sv, err := structToValue(e)
			if err != nil {
				return state.Nil(), err
			}
			out[key] = sv
		}
		return state.Map(out), nil
	default:
		return state.Nil(), werrors.ErrType
	}
}
