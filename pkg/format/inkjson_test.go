package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/format"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/source"
)

func sp() source.Span { return source.Span{} }

func TestInkJSONCanImportRequiresPassagesKey(t *testing.T) {
	f := format.InkJSON{}
	assert.True(t, f.CanImport([]byte(`{"start_passage_id":"a","passages":{"a":{}}}`)))
	assert.False(t, f.CanImport([]byte(`{"foo":"bar"}`)))
	assert.False(t, f.CanImport([]byte(`not json`)))
}

func TestInkJSONImportBuildsStory(t *testing.T) {
	doc := `{
		"start_passage_id": "start",
		"passages": {
			"start": {
				"content": [{"kind": "Text", "value": "hello"}],
				"choices": [
					{"text": [{"kind": "Text", "value": "go"}], "target_passage_id": "end", "sticky": true}
				]
			},
			"end": {"content": [{"kind": "Text", "value": "bye"}]}
		}
	}`
	f := format.InkJSON{}
	story, err := f.Import([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "start", story.StartPassageID)
	require.Contains(t, story.Passages, "start")
	require.Contains(t, story.Passages, "end")

	start := story.Passages["start"]
	require.Len(t, start.Content, 1)
	txt, ok := start.Content[0].(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "hello", txt.Value)

	require.Len(t, start.Choices, 1)
	c := start.Choices[0]
	assert.Equal(t, "end", c.TargetPassageID)
	assert.True(t, c.Sticky)
	assert.Equal(t, "start", c.Owner)
}

func TestInkJSONImportRejectsMissingStartPassage(t *testing.T) {
	doc := `{"start_passage_id": "nowhere", "passages": {"a": {}}}`
	_, err := format.InkJSON{}.Import([]byte(doc))
	assert.Error(t, err)
}

func TestInkJSONExportImportRoundTripsThroughRuntime(t *testing.T) {
	story := &runtime.Story{
		ID:             "s1",
		StartPassageID: "start",
		Passages: map[string]*runtime.Passage{
			"start": {
				ID:            "start",
				Name:          "start",
				OnEnterScript: []ast.Node{ast.NewAssignment(sp(), "gold", "=", ast.NewLiteral(sp(), ast.LiteralNumber, 10.0))},
				Content:       []ast.Node{ast.NewText(sp(), "hi"), ast.NewInlineExpr(sp(), ast.NewVariableRef(sp(), "gold", nil))},
				Choices: []*runtime.Choice{
					{Index: 0, Owner: "start", Text: []ast.Node{ast.NewText(sp(), "go")}, TargetPassageID: "end", Once: true},
				},
			},
			"end": {ID: "end", Name: "end", Content: []ast.Node{ast.NewText(sp(), "bye")}},
		},
	}

	f := format.InkJSON{}
	out, err := f.Export(story)
	require.NoError(t, err)
	require.True(t, f.CanImport([]byte(out)))

	reimported, err := f.Import([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, story.StartPassageID, reimported.StartPassageID)

	start := reimported.Passages["start"]
	require.Len(t, start.OnEnterScript, 1)
	assign, ok := start.OnEnterScript[0].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "gold", assign.Name)

	require.Len(t, start.Content, 2)
	require.Len(t, start.Choices, 1)
	assert.True(t, start.Choices[0].Once)
	assert.Equal(t, "end", start.Choices[0].TargetPassageID)
}

func TestRegistryLooksUpByNameAndExtension(t *testing.T) {
	reg := format.NewRegistry(format.InkJSON{})
	assert.Equal(t, format.InkJSON{}, reg.ByName("ink-json"))
	assert.Equal(t, format.InkJSON{}, reg.ByExtension(".json"))
	assert.Nil(t, reg.ByName("nope"))
	assert.Nil(t, reg.ByExtension(".yaml"))
}
