package emitter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/emitter"
	"github.com/weave-lang/weave/pkg/source"
)

func sp() source.Span { return source.Span{} }

func text(s string) ast.Node { return ast.NewText(sp(), s) }

func TestEmitLowersPassagesAndDefaultsStartToFirst(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("hello")}),
		ast.NewPassage(sp(), "end", nil, []ast.Node{text("bye")}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	assert.NotEmpty(t, story.ID)
	assert.Equal(t, "start", story.StartPassageID)
	require.Contains(t, story.Passages, "start")
	require.Contains(t, story.Passages, "end")
	assert.Equal(t, []ast.Node{text("hello")}, story.Passages["start"].Content)
}

func TestEmitHonorsStartMetadataOverride(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewMetadata(sp(), "start", ast.NewLiteral(sp(), ast.LiteralString, "end")),
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("hello")}),
		ast.NewPassage(sp(), "end", nil, []ast.Node{text("bye")}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	assert.Equal(t, "end", story.StartPassageID)
}

func TestEmitPartitionsLeadingAssignmentsIntoOnEnterScript(t *testing.T) {
	assign := ast.NewAssignment(sp(), "gold", "=", ast.NewLiteral(sp(), ast.LiteralNumber, 10.0))
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{assign, text("hi")}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	p := story.Passages["start"]
	require.Len(t, p.OnEnterScript, 1)
	assert.Equal(t, assign, p.OnEnterScript[0])
	assert.Equal(t, []ast.Node{text("hi")}, p.Content)
}

func TestEmitAssignmentAfterContentStaysInContent(t *testing.T) {
	assign := ast.NewAssignment(sp(), "gold", "=", ast.NewLiteral(sp(), ast.LiteralNumber, 10.0))
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("hi"), assign}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	p := story.Passages["start"]
	assert.Empty(t, p.OnEnterScript)
	assert.Equal(t, []ast.Node{text("hi"), assign}, p.Content)
}

func TestEmitDerivesOnceFromStickyAndStripsTrailingDivert(t *testing.T) {
	// Mirrors how the real parser shapes a choice whose divert lives in
	// its indented body rather than inline on the choice's own line
	// (spec §6.1's `+ [Wait]\n  ~ waited += 1\n  -> start`): c.Target is
	// empty, and the trailing Divert in Body is what carries the target.
	assign := ast.NewAssignment(sp(), "visited", "=", ast.NewLiteral(sp(), ast.LiteralBool, true))
	divert := ast.NewDivert(sp(), "next")
	choice := ast.NewChoice(sp(), true, []ast.Node{text("go on")}, nil, "", []ast.Node{assign, divert}, nil)
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{choice}),
		ast.NewPassage(sp(), "next", nil, []ast.Node{text("there")}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	p := story.Passages["start"]
	require.Len(t, p.Choices, 1)
	c := p.Choices[0]
	assert.True(t, c.Sticky)
	assert.False(t, c.Once)
	assert.Equal(t, "next", c.TargetPassageID, "target is backfilled from the body's trailing divert")
	assert.False(t, c.IsTunnel)
	assert.Equal(t, []ast.Node{assign}, c.Action, "trailing divert is dropped, target is carried separately")
	assert.Equal(t, "start", c.Owner)
	assert.Equal(t, 0, c.Index)
}

func TestEmitBackfillsTunnelTargetFromTrailingTunnelCall(t *testing.T) {
	assign := ast.NewAssignment(sp(), "waited", "+=", ast.NewLiteral(sp(), ast.LiteralNumber, 1.0))
	tunnel := ast.NewTunnelCall(sp(), "start")
	choice := ast.NewChoice(sp(), true, []ast.Node{text("wait")}, nil, "", []ast.Node{assign, tunnel}, nil)
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{choice}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	c := story.Passages["start"].Choices[0]
	assert.Equal(t, "start", c.TargetPassageID)
	assert.True(t, c.IsTunnel)
	assert.Equal(t, []ast.Node{assign}, c.Action)
}

func TestEmitPrefersInlineTargetOverBodyDivert(t *testing.T) {
	assign := ast.NewAssignment(sp(), "visited", "=", ast.NewLiteral(sp(), ast.LiteralBool, true))
	choice := ast.NewChoice(sp(), true, []ast.Node{text("go on")}, nil, "next", []ast.Node{assign}, nil)
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{choice}),
		ast.NewPassage(sp(), "next", nil, []ast.Node{text("there")}),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	c := story.Passages["start"].Choices[0]
	assert.Equal(t, "next", c.TargetPassageID)
	assert.False(t, c.IsTunnel)
	assert.Equal(t, []ast.Node{assign}, c.Action)
}

func TestEmitOneShotChoiceHasOnceTrue(t *testing.T) {
	choice := ast.NewChoice(sp(), false, []ast.Node{text("take it")}, nil, "next", nil, nil)
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{choice}),
		ast.NewPassage(sp(), "next", nil, nil),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	c := story.Passages["start"].Choices[0]
	assert.False(t, c.Sticky)
	assert.True(t, c.Once)
}

func TestEmitFallbackChoiceHasEmptyTextAndFallbackTrue(t *testing.T) {
	choice := ast.NewChoice(sp(), false, nil, nil, "next", nil, nil)
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{choice}),
		ast.NewPassage(sp(), "next", nil, nil),
	})

	story, err := emitter.New(nil).Emit(script)
	require.NoError(t, err)
	c := story.Passages["start"].Choices[0]
	assert.True(t, c.Fallback)
}

func TestEmitRejectsScriptWithNoPassages(t *testing.T) {
	script := ast.NewScript(sp(), nil)
	_, err := emitter.New(nil).Emit(script)
	assert.Error(t, err)
}

func TestEmitRejectsDuplicatePassageNames(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("a")}),
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("b")}),
	})
	_, err := emitter.New(nil).Emit(script)
	assert.Error(t, err)
}

func TestEmitRejectsUnresolvableStartOverride(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Node{
		ast.NewMetadata(sp(), "start", ast.NewLiteral(sp(), ast.LiteralString, "nowhere")),
		ast.NewPassage(sp(), "start", nil, []ast.Node{text("a")}),
	})
	_, err := emitter.New(nil).Emit(script)
	assert.Error(t, err)
}
