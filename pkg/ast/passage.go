package ast

import "github.com/weave-lang/weave/pkg/source"

// Passage is a `:: name [tags]?` declaration and its indented body.
type Passage struct {
	base
	Name string
	Tags []string
	// Body holds every statement of the passage in source order: Text,
	// InlineExpr carriers, Choice, Assignment, Conditional, Divert,
	// TunnelCall, TunnelReturn, ThreadStart. The emitter partitions this
	// into the Story Passage's content/choices/on_enter_script (spec
	// §4.5).
	Body []Node
}

func NewPassage(span source.Span, name string, tags []string, body []Node) *Passage {
	return &Passage{base: base{span}, Name: name, Tags: tags, Body: body}
}

func (*Passage) Kind() NodeKind { return KindPassage }

// Choice is a `*`/`+` choice statement.
type Choice struct {
	base
	// Sticky is true for `+` choices, false (one-shot) for `*` choices.
	Sticky bool
	// Text holds the choice's display text fragments (Text/InlineExpr),
	// empty when the choice is a bare fallback (`* -> target`).
	Text []Node
	// Condition is the optional `[ expr ]` bracket condition.
	Condition Node
	// Target is the divert identifier following `->` on the choice line,
	// empty when the divert is written in the indented Body instead (the
	// emitter takes the target from the body's trailing divert). A choice
	// with neither an inline target nor a body is a diagnostic.
	Target string
	// Body holds nested statements under the choice (e.g. assignments
	// before its divert), source order.
	Body []Node
	Tags []string
}

func NewChoice(span source.Span, sticky bool, text []Node, condition Node, target string, body []Node, tags []string) *Choice {
	return &Choice{base: base{span}, Sticky: sticky, Text: text, Condition: condition, Target: target, Body: body, Tags: tags}
}

func (*Choice) Kind() NodeKind { return KindChoice }

// IsFallback reports whether this choice has no display text, the
// defining trait of a fallback choice (spec §4.5 rule 3).
func (c *Choice) IsFallback() bool { return len(c.Text) == 0 }
