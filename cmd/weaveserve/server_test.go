package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/source"
)

func testStory() *runtime.Story {
	var sp source.Span
	return &runtime.Story{
		ID:             "test-story",
		StartPassageID: "start",
		Passages: map[string]*runtime.Passage{
			"start": {
				ID:   "start",
				Name: "start",
				Content: []ast.Node{
					ast.NewText(sp, "hello"),
				},
				Choices: []*runtime.Choice{
					{Index: 0, Owner: "start", Text: []ast.Node{ast.NewText(sp, "leave")}, TargetPassageID: "ending"},
				},
			},
			"ending": {ID: "ending", Name: "ending", Content: []ast.Node{ast.NewText(sp, "bye")}},
		},
	}
}

func testRouter(t *testing.T) (*gin.Engine, *server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bus := kernel.NewBus(nil)
	srv := newServer(testStory(), bus, nil, nil)
	r := gin.New()
	srv.routes(r)
	return r, srv
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsStoryID(t *testing.T) {
	r, _ := testRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-story")
}

func TestSessionLifecycleContinueAndChoice(t *testing.T) {
	r, _ := testRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	rec = doJSON(t, r, http.MethodPost, "/sessions/"+created.SessionID+"/continue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cont continueResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cont))
	assert.Equal(t, []string{"hello"}, cont.Text)
	assert.True(t, cont.Awaiting)
	require.Len(t, cont.Choices, 1)
	assert.Equal(t, "leave", cont.Choices[0].Text)

	rec = doJSON(t, r, http.MethodPost, "/sessions/"+created.SessionID+"/choice", map[string]int{"index": 0})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/"+created.SessionID+"/continue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cont))
	assert.Equal(t, []string{"bye"}, cont.Text)
	assert.True(t, cont.Ended)
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	r, _ := testRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/sessions/does-not-exist/continue", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVariableReadWriteRoundTrip(t *testing.T) {
	r, _ := testRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", nil)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodPut, "/sessions/"+created.SessionID+"/variables/gold", map[string]any{"value": 42.0})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/sessions/"+created.SessionID+"/variables/gold", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Value float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 42.0, got.Value)
}
