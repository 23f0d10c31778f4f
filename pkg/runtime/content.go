package runtime

import (
	"strings"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/eval"
)

// cursor linearizes a nested tree of content nodes (a Passage's Content,
// with Conditional/ThreadStart branches spliced in as they're reached)
// into a depth-first stream, without eagerly flattening it up front.
// Splicing a branch is just pushing its node list as a new frame: the
// next call to next() drains it before returning to the frame it was
// pushed from, which is exactly thread_start's "gathered depth-first,
// concatenated in order" contract (spec §4.7).
type cursor struct {
	frames []contentFrame
}

type contentFrame struct {
	nodes []ast.Node
	idx   int
}

func newCursor(nodes []ast.Node) *cursor {
	c := &cursor{}
	c.push(nodes)
	return c
}

func (c *cursor) push(nodes []ast.Node) {
	if len(nodes) == 0 {
		return
	}
	c.frames = append(c.frames, contentFrame{nodes: nodes})
}

func (c *cursor) next() (ast.Node, bool) {
	for len(c.frames) > 0 {
		top := &c.frames[len(c.frames)-1]
		if top.idx >= len(top.nodes) {
			c.frames = c.frames[:len(c.frames)-1]
			continue
		}
		n := top.nodes[top.idx]
		top.idx++
		return n, true
	}
	return nil, false
}

// renderFragments evaluates a list of Text/InlineExpr/InlineConditional
// fragments (a choice's display text, or an inline-conditional branch)
// into plain text. It is used both for static rendering (choice text at
// presentation time) and, via renderNode, inside the content walk.
func renderFragments(nodes []ast.Node, s eval.StateReader, funcs eval.Functions) (string, error) {
	var buf strings.Builder
	for _, n := range nodes {
		if err := renderNode(n, s, funcs, &buf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func renderNode(n ast.Node, s eval.StateReader, funcs eval.Functions, buf *strings.Builder) error {
	switch node := n.(type) {
	case *ast.Text:
		buf.WriteString(node.Value)
	case *ast.InlineExpr:
		v, err := eval.Evaluate(node.Expr, s, funcs)
		if err != nil {
			return err
		}
		buf.WriteString(v.String())
	case *ast.InlineConditional:
		ok, err := eval.EvaluateCondition(node.Cond, s, funcs)
		if err != nil {
			return err
		}
		branch := node.Else
		if ok {
			branch = node.Then
		}
		for _, frag := range branch {
			if err := renderNode(frag, s, funcs, buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveConditionalBranch evaluates a block Conditional's cond/elifs in
// order and returns the chosen branch's body, or nil if none matched
// (spec §4.7 step (g): "inline the chosen body's content; non-matching
// branches are skipped entirely").
func resolveConditionalBranch(c *ast.Conditional, s eval.StateReader, funcs eval.Functions) ([]ast.Node, error) {
	ok, err := eval.EvaluateCondition(c.Cond, s, funcs)
	if err != nil {
		return nil, err
	}
	if ok {
		return c.Then, nil
	}
	for _, elif := range c.Elifs {
		ok, err := eval.EvaluateCondition(elif.Cond, s, funcs)
		if err != nil {
			return nil, err
		}
		if ok {
			return elif.Body, nil
		}
	}
	if c.Else != nil {
		return c.Else.Body, nil
	}
	return nil, nil
}
