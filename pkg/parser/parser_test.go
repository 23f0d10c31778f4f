package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/parser"
)

func parse(t *testing.T, src string) (*ast.Script, bool) {
	t.Helper()
	stream, lexDiags := lexer.New("t.weave", src).Lex()
	require.False(t, lexDiags.HasErrors(), "lex diagnostics: %v", lexDiags.All())
	script, diags := parser.New("t.weave", stream).Parse()
	return script, diags.HasErrors()
}

func TestParseMetadataAndInclude(t *testing.T) {
	src := `@@ title: "My Story"
>> "shared.weave" as common
:: start
  "hello"
`
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	meta := script.Metadata()
	require.Len(t, meta, 1)
	assert.Equal(t, "title", meta[0].Key)

	inc := script.Includes()
	require.Len(t, inc, 1)
	assert.Equal(t, "shared.weave", inc[0].Path)
	assert.Equal(t, "common", inc[0].Alias)

	passages := script.Passages()
	require.Len(t, passages, 1)
	assert.Equal(t, "start", passages[0].Name)
}

func TestParsePassageBodyTextAndAssignment(t *testing.T) {
	src := ":: start\n  ~ gold = 10\n  \"You have \" {gold} \" gold.\"\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	body := script.Passages()[0].Body
	require.Len(t, body, 4)
	assign, ok := body[0].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "gold", assign.Name)
	assert.Equal(t, "=", assign.Op)

	text1, ok := body[1].(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "You have ", text1.Value)

	inline, ok := body[2].(*ast.InlineExpr)
	require.True(t, ok)
	ref, ok := inline.Expr.(*ast.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "gold", ref.Name)

	text2, ok := body[3].(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, " gold.", text2.Value)
}

func TestParseChoiceWithConditionAndDivert(t *testing.T) {
	src := ":: start\n  * \"Open the door\" [has_key] -> inside\n  + \"Look around\" -> start\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	body := script.Passages()[0].Body
	require.Len(t, body, 2)

	c1, ok := body[0].(*ast.Choice)
	require.True(t, ok)
	assert.False(t, c1.Sticky)
	assert.Equal(t, "inside", c1.Target)
	require.NotNil(t, c1.Condition)
	ref, ok := c1.Condition.(*ast.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "has_key", ref.Name)

	c2, ok := body[1].(*ast.Choice)
	require.True(t, ok)
	assert.True(t, c2.Sticky)
	assert.Equal(t, "start", c2.Target)
}

func TestParseFallbackChoiceHasNoText(t *testing.T) {
	src := ":: start\n  * -> ending\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	choice := script.Passages()[0].Body[0].(*ast.Choice)
	assert.True(t, choice.IsFallback())
	assert.Equal(t, "ending", choice.Target)
}

func TestParseConditionalBlockWithElifElse(t *testing.T) {
	src := `:: start
  {gold > 10}
    "rich"
  elif {gold > 0}
    "poor"
  else
    "broke"
  end
`
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	cond, ok := script.Passages()[0].Body[0].(*ast.Conditional)
	require.True(t, ok)
	require.Len(t, cond.Then, 1)
	require.Len(t, cond.Elifs, 1)
	require.NotNil(t, cond.Else)
}

func TestParseInlineConditionalFragment(t *testing.T) {
	src := ":: start\n  {gold > 0 : \"some\" | \"none\"}\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	frag, ok := script.Passages()[0].Body[0].(*ast.InlineConditional)
	require.True(t, ok)
	require.Len(t, frag.Then, 1)
	require.Len(t, frag.Else, 1)
}

func TestParseDivertTunnelAndThread(t *testing.T) {
	src := ":: start\n  -> next\n  ->-> sub\n  ->->\n  <- background\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	body := script.Passages()[0].Body
	require.Len(t, body, 4)
	assert.IsType(t, &ast.Divert{}, body[0])
	assert.IsType(t, &ast.TunnelCall{}, body[1])
	assert.IsType(t, &ast.TunnelReturn{}, body[2])
	assert.IsType(t, &ast.ThreadStart{}, body[3])
}

func TestParseExpressionPrecedence(t *testing.T) {
	src := ":: start\n  ~ x = 1 + 2 * 3 == 7 and not false or true\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	assign := script.Passages()[0].Body[0].(*ast.Assignment)
	top, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "or", top.Op)

	and, ok := top.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "and", and.Op)

	eq, ok := and.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "==", eq.Op)

	add, ok := eq.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", add.Op)

	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
}

func TestParseFunctionCallAndListLiteral(t *testing.T) {
	src := ":: start\n  ~ x = roll(1, 6)\n  ~ y = [1, 2, 3]\n"
	script, hasErrors := parse(t, src)
	require.False(t, hasErrors)

	body := script.Passages()[0].Body
	call := body[0].(*ast.Assignment).Value.(*ast.FunctionCall)
	assert.Equal(t, "roll", call.Name)
	assert.Len(t, call.Args, 2)

	list := body[1].(*ast.Assignment).Value.(*ast.ListLiteral)
	assert.Len(t, list.Elements, 3)
}

func TestParseRecoversFromMalformedTopLevelLine(t *testing.T) {
	src := "garbage line\n:: start\n  \"ok\"\n"
	script, hasErrors := parse(t, src)
	assert.True(t, hasErrors)
	require.Len(t, script.Passages(), 1)
	assert.Equal(t, "start", script.Passages()[0].Name)
}
