// Package ast defines the engine's immutable AST node algebra (spec §3,
// component E). Nodes are constructed once by the parser and never
// mutated afterward; every node carries an optional source span for
// diagnostics.
package ast

import "github.com/weave-lang/weave/pkg/source"

// NodeKind is the closed tag set every AST node is drawn from.
type NodeKind string

const (
	KindScript            NodeKind = "Script"
	KindMetadata          NodeKind = "Metadata"
	KindInclude           NodeKind = "Include"
	KindPassage           NodeKind = "Passage"
	KindText              NodeKind = "Text"
	KindChoice            NodeKind = "Choice"
	KindAssignment        NodeKind = "Assignment"
	KindConditional       NodeKind = "Conditional"
	KindDivert            NodeKind = "Divert"
	KindTunnelCall        NodeKind = "TunnelCall"
	KindTunnelReturn      NodeKind = "TunnelReturn"
	KindThreadStart       NodeKind = "ThreadStart"
	KindBinaryExpr        NodeKind = "BinaryExpr"
	KindUnaryExpr         NodeKind = "UnaryExpr"
	KindVariableRef       NodeKind = "VariableRef"
	KindFunctionCall      NodeKind = "FunctionCall"
	KindLiteral           NodeKind = "Literal"
	KindListLiteral       NodeKind = "ListLiteral"
	KindInlineExpr        NodeKind = "InlineExpr"
	KindInlineConditional NodeKind = "InlineConditional"
	KindElifClause        NodeKind = "ElifClause"
	KindElseClause        NodeKind = "ElseClause"
	KindTag               NodeKind = "Tag"
)

// Node is implemented by every AST node. Kind returns the closed tag;
// Span returns the node's source range (zero value if synthesized).
type Node interface {
	Kind() NodeKind
	Span() source.Span
}

// base is embedded by every concrete node type to provide Span() and to
// mark the type as belonging to this closed algebra; it is never
// constructed directly by callers outside this package.
type base struct {
	span source.Span
}

func (b base) Span() source.Span { return b.span }
