// Package emitter lowers a parsed Script AST into an executable Story
// (spec §4.5): the runtime engine never walks ast.Script directly, only
// the runtime.Story/Passage/Choice shapes this package produces.
package emitter

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/werrors"
)

// Emitter lowers an ast.Script into a runtime.Story. It holds no state
// across calls; the zero value is ready to use.
type Emitter struct {
	log *slog.Logger
}

// New returns an Emitter. A nil logger falls back to slog.Default(),
// matching the kernel primitives' own logging convention.
func New(log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{log: log}
}

// Emit lowers script into a Story (spec §4.5 rules 1-6). story_id is a
// fresh google/uuid v4 string, assigned here since spec.md leaves its
// provenance unspecified (SPEC_FULL §3).
func (e *Emitter) Emit(script *ast.Script) (*runtime.Story, error) {
	log := e.log
	if log == nil {
		log = slog.Default()
	}
	story := &runtime.Story{
		ID:       uuid.NewString(),
		Metadata: map[string]ast.Node{},
		Passages: map[string]*runtime.Passage{},
	}

	for _, m := range script.Metadata() {
		story.Metadata[m.Key] = m.Value
	}

	passages := script.Passages()
	if len(passages) == 0 {
		return nil, werrors.ErrValidation
	}

	for _, p := range passages {
		if _, dup := story.Passages[p.Name]; dup {
			log.Warn("duplicate passage name", "name", p.Name)
			return nil, werrors.ErrDuplicate
		}
		story.Passages[p.Name] = e.lowerPassage(p)
	}

	story.StartPassageID = passages[0].Name
	if startNode, ok := story.Metadata["start"]; ok {
		if lit, ok := startNode.(*ast.Literal); ok {
			if s, ok := lit.Value.(string); ok && s != "" {
				story.StartPassageID = s
			}
		}
	}

	if _, ok := story.Passages[story.StartPassageID]; !ok {
		log.Warn("start passage not found", "start_passage_id", story.StartPassageID)
		return nil, werrors.ErrNotFound
	}

	return story, nil
}

// lowerPassage partitions a passage's body into on_enter_script
// (leading Assignment statements, spec §4.5 rule 4), choices (top-level
// Choice statements, rule 3), and content (everything else, in source
// order, rule 4). Targets are carried as-is: the emitter performs no
// name resolution (rule 6); an unresolved target surfaces as a runtime
// not_found diagnostic when the engine tries to divert to it.
func (e *Emitter) lowerPassage(p *ast.Passage) *runtime.Passage {
	out := &runtime.Passage{
		ID:   p.Name,
		Name: p.Name,
		Tags: p.Tags,
	}

	leadingAssignments := true
	choiceIndex := 0
	for _, n := range p.Body {
		if leadingAssignments {
			if a, ok := n.(*ast.Assignment); ok {
				out.OnEnterScript = append(out.OnEnterScript, a)
				continue
			}
			leadingAssignments = false
		}

		if c, ok := n.(*ast.Choice); ok {
			out.Choices = append(out.Choices, e.lowerChoice(p.Name, choiceIndex, c))
			choiceIndex++
			continue
		}

		out.Content = append(out.Content, n)
	}

	return out
}

// lowerChoice builds a runtime.Choice from a parsed `*`/`+` statement
// (spec §4.5 rule 3, §6 sticky/once table). once is the complement of
// sticky, not an independently authored field: `*` choices are one-shot
// (once=true, sticky=false), `+` choices persist (once=false,
// sticky=true). action is the choice body with its trailing divert
// dropped, since the divert is represented separately as
// TargetPassageID/IsTunnel.
//
// target_passage_id (spec §4.5 rule 3, "taken from its divert") comes
// from whichever of the choice's two divert forms the script actually
// used: the inline `-> IDENT` on the choice's own line (c.Target), or —
// when that's empty — the Divert/TunnelCall statement the parser left
// at the end of the choice's indented body (spec §6.1's `+ [Wait]\n  ~
// waited += 1\n  -> start` shape). Both forms are legal; a choice using
// the second form must not be left with an empty target.
func (e *Emitter) lowerChoice(owner string, index int, c *ast.Choice) *runtime.Choice {
	action, target, isTunnel := choiceAction(c.Body)
	if c.Target != "" {
		target, isTunnel = c.Target, false
	}
	return &runtime.Choice{
		Index:           index,
		Owner:           owner,
		Text:            c.Text,
		Condition:       c.Condition,
		Action:          action,
		TargetPassageID: target,
		IsTunnel:        isTunnel,
		Sticky:          c.Sticky,
		Once:            !c.Sticky,
		Fallback:        c.IsFallback(),
		Tags:            c.Tags,
	}
}

// choiceAction returns body with any trailing Divert/TunnelCall node
// stripped, since the choice's own navigation is carried by
// runtime.Choice.TargetPassageID/IsTunnel and leaving it duplicated in
// Action would make the engine transfer control twice. It also returns
// the stripped node's target and whether it was a tunnel call, so the
// caller can use it as TargetPassageID when the choice has no inline
// divert of its own.
func choiceAction(body []ast.Node) (action []ast.Node, target string, isTunnel bool) {
	if len(body) == 0 {
		return nil, "", false
	}
	last := body[len(body)-1]
	switch n := last.(type) {
	case *ast.Divert:
		return body[:len(body)-1], n.Target, false
	case *ast.TunnelCall:
		return body[:len(body)-1], n.Target, true
	default:
		return body, "", false
	}
}
