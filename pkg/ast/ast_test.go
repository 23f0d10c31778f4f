package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/source"
)

func span(offset int) source.Span {
	pos := source.Position{File: "t.weave", Line: 1, Column: offset + 1, Offset: offset}
	return source.Span{Start: pos, End: pos}
}

func TestNodeKindsAreStable(t *testing.T) {
	lit := ast.NewLiteral(span(0), ast.LiteralNumber, 1.0)
	ref := ast.NewVariableRef(span(1), "x", nil)
	bin := ast.NewBinaryExpr(span(2), "+", lit, ref)

	assert.Equal(t, ast.KindLiteral, lit.Kind())
	assert.Equal(t, ast.KindVariableRef, ref.Kind())
	assert.Equal(t, ast.KindBinaryExpr, bin.Kind())
}

func TestObservingANodeTwiceYieldsEqualStructure(t *testing.T) {
	// Immutability invariant (spec §8): a node observed at two different
	// times is structurally equal, since nothing in this package exposes
	// a mutator.
	passage := ast.NewPassage(span(0), "start", []string{"intro"}, []ast.Node{
		ast.NewText(span(1), "hello"),
	})

	first := *passage
	second := *passage
	assert.Equal(t, first, second)
}

func TestScriptPartitionsDeclarationsByKind(t *testing.T) {
	meta := ast.NewMetadata(span(0), "title", ast.NewLiteral(span(0), ast.LiteralString, "My Story"))
	inc := ast.NewInclude(span(1), "shared.weave", "")
	p1 := ast.NewPassage(span(2), "start", nil, nil)
	p2 := ast.NewPassage(span(3), "end", nil, nil)

	script := ast.NewScript(span(0), []ast.Node{meta, inc, p1, p2})

	assert.Equal(t, []*ast.Metadata{meta}, script.Metadata())
	assert.Equal(t, []*ast.Include{inc}, script.Includes())
	assert.Equal(t, []*ast.Passage{p1, p2}, script.Passages())
}

func TestChoiceIsFallbackWhenTextEmpty(t *testing.T) {
	fallback := ast.NewChoice(span(0), false, nil, nil, "ending", nil, nil)
	assert.True(t, fallback.IsFallback())

	withText := ast.NewChoice(span(0), false, []ast.Node{ast.NewText(span(0), "go")}, nil, "ending", nil, nil)
	assert.False(t, withText.IsFallback())
}
