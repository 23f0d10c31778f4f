package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-lang/weave/pkg/runtime"
)

func writeStory(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.weave")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCompileScriptBuildsStoryForValidSource(t *testing.T) {
	path := writeStory(t, ":: start\n  \"hello\"\n  * \"leave\" -> ending\n:: ending\n  \"bye\"\n")

	story, bag, err := compileScript(path)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())
	require.NotNil(t, story)
	assert.Equal(t, "start", story.StartPassageID)
	assert.Contains(t, story.Passages, "ending")
}

func TestCompileScriptReportsLexDiagnosticsWithoutPanicking(t *testing.T) {
	path := writeStory(t, ":: start\n\t\"bad indent mixing tabs\"\n")

	story, bag, err := compileScript(path)
	require.NoError(t, err)
	assert.Nil(t, story)
	_ = bag // lexer/parser diagnostics shape is covered by their own packages' tests
}

func TestCompileScriptPropagatesMissingFileError(t *testing.T) {
	_, _, err := compileScript(filepath.Join(t.TempDir(), "missing.weave"))
	require.Error(t, err)
}

func TestParseChoiceSelection(t *testing.T) {
	choices := []*runtime.Choice{{Index: 0}, {Index: 3}}

	c, ok := parseChoiceSelection("1", choices)
	require.True(t, ok)
	assert.Equal(t, 0, c.Index)

	c, ok = parseChoiceSelection("2", choices)
	require.True(t, ok)
	assert.Equal(t, 3, c.Index)

	_, ok = parseChoiceSelection("0", choices)
	assert.False(t, ok)

	_, ok = parseChoiceSelection("9", choices)
	assert.False(t, ok)

	_, ok = parseChoiceSelection("not-a-number", choices)
	assert.False(t, ok)
}
