package runtime

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/eval"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// EngineState names one of the runtime's resting states (spec §3/§4.7).
// "Started" names a transition, not a resting state in this
// implementation: the state-machine table always lands in InPassage in
// the same synchronous call that starts the story, so there is nothing
// observable about a separate Started state to model.
type EngineState string

const (
	StateUnloaded       EngineState = "unloaded"
	StateLoaded         EngineState = "loaded"
	StateInPassage      EngineState = "in_passage"
	StateAwaitingChoice EngineState = "awaiting_choice"
	StateEnded          EngineState = "ended"
)

// maxTunnelDepth bounds the tunnel call stack; exceeding it is treated
// as a caller bug (runaway recursive tunnel calls) rather than a
// resource the script can legitimately exhaust.
const maxTunnelDepth = 256

type tunnelFrame struct {
	passageID string
	cursor    *cursor
}

// Engine is the deterministic single-threaded story runtime (spec
// §4.7): it owns a Story, a variable State, a tunnel call stack and the
// set of alive flows, and executes one passage at a time.
type Engine struct {
	log   *slog.Logger
	bus   *kernel.Bus
	funcs *functionRegistry

	story *Story
	vars  *state.State

	state    EngineState
	current  string // current passage id
	cur      *cursor
	pending  ast.Node // a control node deferred to the start of the next Continue()
	visible  []*Choice
	gathered []*Choice // choices merged in via thread_start during this passage visit

	callStack     []tunnelFrame
	consumedOnces map[string]bool
	aliveFlows    map[string]bool

	loadSnapshot state.Snapshot
}

// NewEngine creates an Engine in the Unloaded state.
func NewEngine(bus *kernel.Bus, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:           log,
		bus:           bus,
		funcs:         newFunctionRegistry(),
		vars:          state.New(),
		state:         StateUnloaded,
		consumedOnces: map[string]bool{},
		aliveFlows:    map[string]bool{"default": true},
	}
}

// State reports the engine's current resting state.
func (e *Engine) State() EngineState { return e.state }

// Load installs story and resets all runtime bookkeeping (call stack,
// once-marks, variables) to a fresh baseline (spec table: */load →
// Loaded, story.loaded).
func (e *Engine) Load(story *Story) error {
	if story == nil {
		return werrors.ErrValidation
	}
	e.story = story
	e.vars = state.New()
	e.state = StateLoaded
	e.current = ""
	e.cur = nil
	e.pending = nil
	e.visible = nil
	e.gathered = nil
	e.callStack = nil
	e.consumedOnces = map[string]bool{}
	e.aliveFlows = map[string]bool{"default": true}
	e.loadSnapshot = e.vars.Snapshot()
	e.bus.Emit(kernel.EventStoryLoaded, StoryLoadedPayload{StoryID: story.ID})
	return nil
}

// Start transitions Loaded → InPassage, entering knot (or the story's
// declared start passage if knot is empty).
func (e *Engine) Start(knot string) error {
	if e.state != StateLoaded {
		return werrors.ErrInvalidState
	}
	id := knot
	if id == "" {
		id = e.story.StartPassageID
	}
	e.bus.Emit(kernel.EventStoryStarted, StoryStartedPayload{StoryID: e.story.ID, StartPassageID: id})
	return e.enterPassageFresh(id)
}

// CanContinue reports whether Continue has more content to pull for the
// current passage visit.
func (e *Engine) CanContinue() bool { return e.state == StateInPassage }

// HasEnded reports whether the story has reached a terminal passage.
func (e *Engine) HasEnded() bool { return e.state == StateEnded }

// Continue pulls the next run of text from the current passage,
// following diverts and tunnel calls silently until it has produced
// text or the passage (and any thread_start gathers) are exhausted. A
// call that crosses into a new passage without having produced any text
// yet keeps running in the new passage rather than returning empty
// (spec §4.7 step sequence, §8 scenario 4).
func (e *Engine) Continue() (string, []string, error) {
	if e.state != StateInPassage {
		return "", nil, werrors.ErrInvalidState
	}

	if e.pending != nil {
		ctrl := e.pending
		e.pending = nil
		if err := e.executeControl(ctrl); err != nil {
			return "", nil, err
		}
		if e.state != StateInPassage {
			return "", nil, nil
		}
	}

	var out []byte
	for {
		node, ok := e.cur.next()
		if !ok {
			if err := e.finishPassageContent(); err != nil {
				return "", nil, err
			}
			text := string(out)
			if text != "" {
				e.bus.Emit(kernel.EventStoryContinued, StoryContinuedPayload{Text: text})
			}
			if e.state == StateInPassage {
				continue // an auto-taken fallback re-entered a passage; keep pulling
			}
			return text, nil, nil
		}

		switch n := node.(type) {
		case *ast.Text, *ast.InlineExpr, *ast.InlineConditional:
			var buf strings.Builder
			if err := renderNode(n, e.vars, e.funcs, &buf); err != nil {
				return "", nil, err
			}
			out = append(out, buf.String()...)
		case *ast.Assignment:
			if err := e.applyAssignmentNode(n); err != nil {
				return "", nil, err
			}
		case *ast.Conditional:
			branch, err := resolveConditionalBranch(n, e.vars, e.funcs)
			if err != nil {
				return "", nil, err
			}
			e.cur.push(branch)
		case *ast.ThreadStart:
			target, ok := e.story.Passages[n.Target]
			if !ok {
				return "", nil, werrors.ErrNotFound
			}
			e.cur.push(target.Content)
			e.gathered = append(e.gathered, target.Choices...)
		case *ast.Divert, *ast.TunnelCall, *ast.TunnelReturn:
			if len(out) == 0 {
				if err := e.executeControl(node); err != nil {
					return "", nil, err
				}
				if e.state != StateInPassage {
					return string(out), nil, nil
				}
				continue
			}
			e.pending = node
			text := string(out)
			e.bus.Emit(kernel.EventStoryContinued, StoryContinuedPayload{Text: text})
			return text, nil, nil
		default:
			return "", nil, fmt.Errorf("%w: unexpected content node", werrors.ErrInvalidState)
		}
	}
}

func (e *Engine) executeControl(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Divert:
		if err := e.exitCurrentPassage(); err != nil {
			return err
		}
		return e.enterPassageFresh(n.Target)
	case *ast.TunnelCall:
		if len(e.callStack) >= maxTunnelDepth {
			return werrors.ErrInvalidState
		}
		e.callStack = append(e.callStack, tunnelFrame{passageID: e.current, cursor: e.cur})
		if err := e.exitCurrentPassage(); err != nil {
			return err
		}
		return e.enterPassageFresh(n.Target)
	case *ast.TunnelReturn:
		if len(e.callStack) == 0 {
			return werrors.ErrInvalidState
		}
		last := len(e.callStack) - 1
		frame := e.callStack[last]
		e.callStack = e.callStack[:last]
		if err := e.exitCurrentPassage(); err != nil {
			return err
		}
		e.current = frame.passageID
		e.cur = frame.cursor
		e.gathered = nil
		e.state = StateInPassage
		p := e.story.Passages[e.current]
		e.bus.Emit(kernel.EventPassageEntered, PassageEnteredPayload{PassageID: e.current, Tags: p.Tags})
		return nil
	default:
		return werrors.ErrInvalidState
	}
}

func (e *Engine) exitCurrentPassage() error {
	e.bus.Emit(kernel.EventPassageExited, PassageExitedPayload{PassageID: e.current})
	return nil
}

func (e *Engine) enterPassageFresh(id string) error {
	p, ok := e.story.Passages[id]
	if !ok {
		return werrors.ErrNotFound
	}
	e.current = id
	e.cur = newCursor(p.Content)
	e.gathered = nil
	e.state = StateInPassage
	for _, n := range p.OnEnterScript {
		if a, ok := n.(*ast.Assignment); ok {
			if err := e.applyAssignmentNode(a); err != nil {
				return err
			}
		}
	}
	e.bus.Emit(kernel.EventPassageEntered, PassageEnteredPayload{PassageID: id, Tags: p.Tags})
	return nil
}

// computeVisibleChoices runs the choice-presentation filter (spec §4.7
// "Choice presentation" steps i-ii) over a passage's own choices plus
// any merged in via thread_start, returning the selectable list and the
// first fallback choice found, if any.
func (e *Engine) computeVisibleChoices(p *Passage, gathered []*Choice) ([]*Choice, *Choice, error) {
	all := make([]*Choice, 0, len(p.Choices)+len(gathered))
	all = append(all, p.Choices...)
	all = append(all, gathered...)

	var real []*Choice
	var fallback *Choice
	for _, c := range all {
		if c.Fallback {
			if fallback == nil {
				fallback = c
			}
			continue
		}
		if c.Once && e.consumedOnces[onceKey(c)] {
			continue
		}
		if c.Condition != nil {
			ok, err := eval.EvaluateCondition(c.Condition, e.vars, e.funcs)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
		}
		real = append(real, c)
	}
	return real, fallback, nil
}

// finishPassageContent runs the choice-presentation algorithm (spec
// §4.7 "Choice presentation") once a passage's content is exhausted.
func (e *Engine) finishPassageContent() error {
	p := e.story.Passages[e.current]
	real, fallback, err := e.computeVisibleChoices(p, e.gathered)
	if err != nil {
		return err
	}

	if len(real) == 0 {
		if fallback != nil {
			return e.selectChoice(fallback, true)
		}
		e.state = StateEnded
		e.bus.Emit(kernel.EventStoryEnded, StoryEndedPayload{PassageID: e.current})
		return nil
	}

	e.visible = real
	e.state = StateAwaitingChoice
	e.bus.Emit(kernel.EventChoicesAvailable, ChoicesAvailablePayload{PassageID: e.current, Count: len(real)})
	return nil
}

func onceKey(c *Choice) string { return fmt.Sprintf("%s#%d", c.Owner, c.Index) }

// GetChoices returns the currently presented choice list; valid only in
// AwaitingChoice.
func (e *Engine) GetChoices() ([]*Choice, error) {
	if e.state != StateAwaitingChoice {
		return nil, werrors.ErrInvalidState
	}
	return append([]*Choice(nil), e.visible...), nil
}

// ChoiceText renders the display text of a choice returned by
// GetChoices, interpolating any inline expressions against the
// engine's current variables. Empty for a fallback choice.
func (e *Engine) ChoiceText(c *Choice) (string, error) {
	return renderFragments(c.Text, e.vars, e.funcs)
}

// MakeChoice selects the visible choice at index (matched by Choice.Index,
// not its position in the presented slice).
func (e *Engine) MakeChoice(index int) error {
	if e.state != StateAwaitingChoice {
		return werrors.ErrInvalidState
	}
	var chosen *Choice
	for _, c := range e.visible {
		if c.Index == index {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return werrors.ErrNotFound
	}
	e.visible = nil
	return e.selectChoice(chosen, false)
}

func (e *Engine) selectChoice(c *Choice, automatic bool) error {
	text, err := renderFragments(c.Text, e.vars, e.funcs)
	if err != nil {
		return err
	}
	e.bus.Emit(kernel.EventChoiceMade, ChoiceMadePayload{
		PassageID: c.Owner, Index: c.Index, Text: text, Target: c.TargetPassageID, Automatic: automatic,
	})
	if c.Once {
		e.consumedOnces[onceKey(c)] = true
	}
	if err := e.runActionNodes(c.Action); err != nil {
		return err
	}
	if c.IsTunnel {
		return e.executeControl(ast.NewTunnelCall(source.Span{}, c.TargetPassageID))
	}
	return e.executeControl(ast.NewDivert(source.Span{}, c.TargetPassageID))
}

// runActionNodes executes a choice's Action statements before control
// transfers to its target: Assignment nodes directly, and a
// Conditional's resolved branch recursively — the two shapes spec §4.5
// rule 3 describes a choice running on selection. Anything else (the
// statement grammar permits more than these two inside a choice body)
// fails loudly instead of being silently skipped.
func (e *Engine) runActionNodes(nodes []ast.Node) error {
	for _, n := range nodes {
		switch node := n.(type) {
		case *ast.Assignment:
			if err := e.applyAssignmentNode(node); err != nil {
				return err
			}
		case *ast.Conditional:
			branch, err := resolveConditionalBranch(node, e.vars, e.funcs)
			if err != nil {
				return err
			}
			if err := e.runActionNodes(branch); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unsupported node in choice action", werrors.ErrInvalidState)
		}
	}
	return nil
}

// GoToPath jumps directly to a passage, bypassing choice selection
// (spec §6.2 go_to_path). resetCallStack clears pending tunnel returns;
// leaving it false preserves them so a later tunnel_return still
// resolves to wherever it was before the jump.
func (e *Engine) GoToPath(passageID string, resetCallStack bool) error {
	if e.state == StateUnloaded || e.state == StateLoaded {
		return werrors.ErrInvalidState
	}
	if resetCallStack {
		e.callStack = nil
	}
	if err := e.exitCurrentPassage(); err != nil {
		return err
	}
	return e.enterPassageFresh(passageID)
}

// Reset returns to Loaded with a cleared tunnel stack, cleared
// once-marks, and variables reinitialised from the load-time snapshot
// (spec §4.7 "Cancellation / reset").
func (e *Engine) Reset() error {
	if e.story == nil {
		return werrors.ErrInvalidState
	}
	e.state = StateLoaded
	e.current = ""
	e.cur = nil
	e.pending = nil
	e.visible = nil
	e.gathered = nil
	e.callStack = nil
	e.consumedOnces = map[string]bool{}
	e.vars.Restore(e.loadSnapshot)
	e.bus.Emit(kernel.EventStoryReset, StoryResetPayload{StoryID: e.story.ID})
	return nil
}

// GetVariable reads a Script variable.
func (e *Engine) GetVariable(name string) (state.Value, bool) { return e.vars.Get(name) }

// SetVariable assigns a Script variable from host code, emitting
// variable:changed like any in-script assignment.
func (e *Engine) SetVariable(name string, v state.Value) error {
	return e.setVariable(name, v)
}

// ObserveVariable subscribes to changes of name ("*" for every
// variable), per spec §6.2 observe_variable.
func (e *Engine) ObserveVariable(name string, fn state.Observer) state.Unsubscribe {
	return e.vars.Observe(name, fn)
}

// BindExternalFunction registers fn under name for use from Script
// expressions (spec §4.7 "External functions").
func (e *Engine) BindExternalFunction(name string, fn ExternalFunc, lookaheadSafe bool) {
	e.funcs.bind(name, fn, lookaheadSafe)
}

func (e *Engine) setVariable(name string, v state.Value) error {
	old, _ := e.vars.Get(name)
	if err := e.vars.Set(name, v); err != nil {
		return err
	}
	e.bus.Emit(kernel.EventVariableChanged, VariableChangedPayload{Name: name, OldValue: old, NewValue: v})
	return nil
}

func (e *Engine) applyAssignmentNode(a *ast.Assignment) error {
	rhs, err := eval.Evaluate(a.Value, e.vars, e.funcs)
	if err != nil {
		return err
	}
	cur, _ := e.vars.Get(a.Name)
	next, err := combineAssignment(a.Op, cur, rhs)
	if err != nil {
		return err
	}
	return e.setVariable(a.Name, next)
}
