// Package runtime implements the story runtime engine (spec §4.7,
// component H): the deterministic state machine that executes one
// passage at a time over an immutable Story, the data model for Story/
// Passage/Choice produced by the emitter, and the host-facing API
// (spec §6.2).
package runtime

import "github.com/weave-lang/weave/pkg/ast"

// Story is the immutable, executable form of a compiled or imported
// narrative (spec §3). Once built it is never mutated; multiple Engines
// may share one Story.
type Story struct {
	ID             string
	Metadata       map[string]ast.Node
	StartPassageID string
	Passages       map[string]*Passage
}

// Passage is a named unit of content and the choices reachable from it.
// Its ID is its authored name: passage ids are names in this engine
// (spec GLOSSARY: "Knot ... in the core it is simply a passage id").
type Passage struct {
	ID   string
	Name string
	Tags []string
	// OnEnterScript holds the Assignment nodes clustered at the top of
	// the passage body, run once immediately on entry, before content
	// production begins.
	OnEnterScript []ast.Node
	// Content holds every other body element in source order: Text,
	// InlineExpr, InlineConditional, Assignment (interspersed with
	// text, or nested inside a Conditional branch), Divert, TunnelCall,
	// TunnelReturn, ThreadStart, Conditional.
	Content []ast.Node
	Choices []*Choice
}

// Choice is one selectable option attached to a Passage.
type Choice struct {
	Index   int
	Owner   string     // the Passage.ID this choice was declared on
	Text    []ast.Node // Text/InlineExpr fragments; empty for a fallback
	Condition ast.Node // nil if unconditional
	// Action holds statements run on selection, before the transfer to
	// TargetPassageID: Assignment nodes, plus Conditional nodes whose
	// resolved branch is executed the same way.
	Action  []ast.Node
	TargetPassageID string
	// IsTunnel is true when the choice's navigation was authored as a
	// tunnel call (`->->`) rather than a plain divert (`->`), so
	// selecting it pushes a call frame instead of transferring control
	// outright.
	IsTunnel bool
	Sticky  bool
	Once    bool
	Fallback bool
	Tags    []string
}

// IsFallback reports whether this is the auto-taken choice of last
// resort (no display text, only a target).
func (c *Choice) IsFallback() bool { return c.Fallback }
