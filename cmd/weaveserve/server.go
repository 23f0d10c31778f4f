package main

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/persistence"
	"github.com/weave-lang/weave/pkg/runtime"
)

// session pairs a running Engine with the id a client uses to address
// it across requests; the demo host keeps everything else (the shared
// Story, the bus) at the server level.
type session struct {
	mu     sync.Mutex
	engine *runtime.Engine
}

// server is the gin-facing wrapper around the engine. It is the only
// place in this module that ties the runtime to HTTP: the core engine
// and kernel packages know nothing about gin or JSON transport, per the
// "no HTTP transport in core" boundary.
type server struct {
	log   *slog.Logger
	bus   *kernel.Bus
	story *runtime.Story
	store persistence.SnapshotStore

	mu       sync.Mutex
	sessions map[string]*session
}

func newServer(story *runtime.Story, bus *kernel.Bus, store persistence.SnapshotStore, log *slog.Logger) *server {
	return &server{
		log:      log,
		bus:      bus,
		story:    story,
		store:    store,
		sessions: map[string]*session{},
	}
}

func (s *server) routes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.POST("/sessions", s.handleCreateSession)
	r.POST("/sessions/:id/continue", s.handleContinue)
	r.POST("/sessions/:id/choice", s.handleChoice)
	r.GET("/sessions/:id/variables/:name", s.handleGetVariable)
	r.PUT("/sessions/:id/variables/:name", s.handleSetVariable)
	r.POST("/sessions/:id/save", s.handleSave)
	r.POST("/sessions/:id/restore", s.handleRestore)
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"story_id":   s.story.ID,
		"persistent": s.store != nil,
	})
}

func (s *server) lookupSession(c *gin.Context) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[c.Param("id")]
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
	}
	return sess
}

func (s *server) handleCreateSession(c *gin.Context) {
	var body struct {
		Start string `json:"start"`
	}
	_ = c.ShouldBindJSON(&body)

	engine := runtime.NewEngine(s.bus, s.log)
	if err := engine.Load(s.story); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := engine.Start(body.Start); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{engine: engine}
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// continueResult is the JSON shape returned by /continue: accumulated
// text lines pulled until the engine needs a choice or the story ends.
type continueResult struct {
	Text     []string     `json:"text"`
	Choices  []choiceView `json:"choices,omitempty"`
	Ended    bool         `json:"ended"`
	Awaiting bool         `json:"awaiting_choice"`
}

type choiceView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func (s *server) handleContinue(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	e := sess.engine
	result := continueResult{}
	for e.CanContinue() {
		text, _, err := e.Continue()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if text != "" {
			result.Text = append(result.Text, text)
		}
	}

	result.Ended = e.HasEnded()
	if !result.Ended {
		choices, err := e.GetChoices()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		result.Awaiting = true
		for _, ch := range choices {
			text, err := e.ChoiceText(ch)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			result.Choices = append(result.Choices, choiceView{Index: ch.Index, Text: text})
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) handleChoice(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	var body struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.engine.MakeChoice(body.Index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleGetVariable(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	v, ok := sess.engine.GetVariable(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown variable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": valueToJSON(v)})
}

func (s *server) handleSetVariable(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	var body struct {
		Value any `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := jsonToValue(body.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.engine.SetVariable(c.Param("name"), v); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleSave(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	snap, err := sess.engine.SaveState()
	sess.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"snapshot": []byte(snap)})
		return
	}
	if err := s.store.SaveSnapshot(c.Request.Context(), s.story.ID, c.Param("id"), snap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleRestore(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}

	snap, err := s.resolveRestoreSnapshot(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.engine.RestoreState(snap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) resolveRestoreSnapshot(c *gin.Context) (runtime.Snapshot, error) {
	var body struct {
		Snapshot []byte `json:"snapshot"`
	}
	_ = c.ShouldBindJSON(&body)
	if len(body.Snapshot) > 0 {
		return runtime.Snapshot(body.Snapshot), nil
	}
	if s.store == nil {
		return nil, errors.New("no snapshot in request body and no persistence store configured")
	}
	return s.store.LoadSnapshot(c.Request.Context(), s.story.ID, c.Param("id"))
}
