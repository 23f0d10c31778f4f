package ast

import "github.com/weave-lang/weave/pkg/source"

// Text is a literal text fragment within a passage or choice body.
type Text struct {
	base
	Value string
}

func NewText(span source.Span, value string) *Text { return &Text{base: base{span}, Value: value} }

func (*Text) Kind() NodeKind { return KindText }

// InlineExpr is a `{ expr }` interpolation marker embedded in text.
type InlineExpr struct {
	base
	Expr Node
}

func NewInlineExpr(span source.Span, expr Node) *InlineExpr {
	return &InlineExpr{base: base{span}, Expr: expr}
}

func (*InlineExpr) Kind() NodeKind { return KindInlineExpr }

// InlineConditional is a `{ expr : thenText | elseText }` inline branch
// embedded in text; Then/Else hold fragment lists (Text/InlineExpr).
type InlineConditional struct {
	base
	Cond Node
	Then []Node
	Else []Node // nil if no `| elseText` clause
}

func NewInlineConditional(span source.Span, cond Node, then, els []Node) *InlineConditional {
	return &InlineConditional{base: base{span}, Cond: cond, Then: then, Else: els}
}

func (*InlineConditional) Kind() NodeKind { return KindInlineConditional }

// Assignment is a `~ name op expr` statement.
type Assignment struct {
	base
	Name string
	Op   string // one of "=", "+=", "-=", "*=", "/="
	Value Node
}

func NewAssignment(span source.Span, name, op string, value Node) *Assignment {
	return &Assignment{base: base{span}, Name: name, Op: op, Value: value}
}

func (*Assignment) Kind() NodeKind { return KindAssignment }

// Conditional is a `{ expr } ... (elif)* (else)? end` block.
type Conditional struct {
	base
	Cond  Node
	Then  []Node
	Elifs []*ElifClause
	Else  *ElseClause
}

func NewConditional(span source.Span, cond Node, then []Node, elifs []*ElifClause, els *ElseClause) *Conditional {
	return &Conditional{base: base{span}, Cond: cond, Then: then, Elifs: elifs, Else: els}
}

func (*Conditional) Kind() NodeKind { return KindConditional }

type ElifClause struct {
	base
	Cond Node
	Body []Node
}

func NewElifClause(span source.Span, cond Node, body []Node) *ElifClause {
	return &ElifClause{base: base{span}, Cond: cond, Body: body}
}

func (*ElifClause) Kind() NodeKind { return KindElifClause }

type ElseClause struct {
	base
	Body []Node
}

func NewElseClause(span source.Span, body []Node) *ElseClause {
	return &ElseClause{base: base{span}, Body: body}
}

func (*ElseClause) Kind() NodeKind { return KindElseClause }

// Divert is a `-> name` unconditional jump.
type Divert struct {
	base
	Target string
}

func NewDivert(span source.Span, target string) *Divert { return &Divert{base: base{span}, Target: target} }

func (*Divert) Kind() NodeKind { return KindDivert }

// TunnelCall is a `->-> name` push-and-jump.
type TunnelCall struct {
	base
	Target string
}

func NewTunnelCall(span source.Span, target string) *TunnelCall {
	return &TunnelCall{base: base{span}, Target: target}
}

func (*TunnelCall) Kind() NodeKind { return KindTunnelCall }

// TunnelReturn is a bare `->->` pop-and-resume.
type TunnelReturn struct {
	base
}

func NewTunnelReturn(span source.Span) *TunnelReturn { return &TunnelReturn{base: base{span}} }

func (*TunnelReturn) Kind() NodeKind { return KindTunnelReturn }

// ThreadStart is a `<- name` parallel-gather directive.
type ThreadStart struct {
	base
	Target string
}

func NewThreadStart(span source.Span, target string) *ThreadStart {
	return &ThreadStart{base: base{span}, Target: target}
}

func (*ThreadStart) Kind() NodeKind { return KindThreadStart }
