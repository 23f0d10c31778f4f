package format

import (
	"encoding/json"
	"fmt"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/werrors"
)

// InkJSON is an Ink-like pre-compiled JSON front-end (spec §4.8): a
// Story authored or exported as a flat JSON document of passages and
// choices, bypassing the lexer/parser/emitter entirely. It produces the
// same runtime.Story shape the emitter does.
type InkJSON struct{}

var _ Format = InkJSON{}

func (InkJSON) Name() string         { return "ink-json" }
func (InkJSON) Extensions() []string { return []string{".json", ".ink.json"} }
func (InkJSON) MimeType() string     { return "application/json" }
func (InkJSON) CanExport() bool      { return true }

// CanImport reports whether data decodes as a JSON object carrying a
// "passages" key; it does not otherwise validate the document.
func (InkJSON) CanImport(data []byte) bool {
	var probe struct {
		Passages json.RawMessage `json:"passages"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return len(probe.Passages) > 0
}

type jsonStoryDoc struct {
	StoryID        string                 `json:"story_id,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	StartPassageID string                 `json:"start_passage_id"`
	Passages       map[string]jsonPassage `json:"passages"`
}

type jsonPassage struct {
	Tags          []string     `json:"tags,omitempty"`
	OnEnterScript []any        `json:"on_enter_script,omitempty"`
	Content       []any        `json:"content,omitempty"`
	Choices       []jsonChoice `json:"choices,omitempty"`
}

type jsonChoice struct {
	Text            []any    `json:"text,omitempty"`
	Condition       any      `json:"condition,omitempty"`
	Action          []any    `json:"action,omitempty"`
	TargetPassageID string   `json:"target_passage_id,omitempty"`
	Sticky          bool     `json:"sticky,omitempty"`
	Once            bool     `json:"once,omitempty"`
	Fallback        bool     `json:"fallback,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Import parses data as an Ink-like JSON document into a Story.
func (InkJSON) Import(data []byte) (*runtime.Story, error) {
	var doc jsonStoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", werrors.ErrValidation, err)
	}
	if len(doc.Passages) == 0 {
		return nil, fmt.Errorf("%w: no passages", werrors.ErrValidation)
	}

	story := &runtime.Story{
		ID:             doc.StoryID,
		Metadata:       map[string]ast.Node{},
		StartPassageID: doc.StartPassageID,
		Passages:       map[string]*runtime.Passage{},
	}

	for k, v := range doc.Metadata {
		n, err := anyToNode(v)
		if err != nil {
			return nil, err
		}
		story.Metadata[k] = n
	}

	for name, jp := range doc.Passages {
		onEnter, err := anyToNodes(jp.OnEnterScript)
		if err != nil {
			return nil, err
		}
		content, err := anyToNodes(jp.Content)
		if err != nil {
			return nil, err
		}
		choices := make([]*runtime.Choice, len(jp.Choices))
		for i, jc := range jp.Choices {
			text, err := anyToNodes(jc.Text)
			if err != nil {
				return nil, err
			}
			cond, err := anyToNode(jc.Condition)
			if err != nil {
				return nil, err
			}
			action, err := anyToNodes(jc.Action)
			if err != nil {
				return nil, err
			}
			choices[i] = &runtime.Choice{
				Index:           i,
				Owner:           name,
				Text:            text,
				Condition:       cond,
				Action:          action,
				TargetPassageID: jc.TargetPassageID,
				Sticky:          jc.Sticky,
				Once:            jc.Once,
				Fallback:        jc.Fallback,
				Tags:            jc.Tags,
			}
		}
		story.Passages[name] = &runtime.Passage{
			ID:            name,
			Name:          name,
			Tags:          jp.Tags,
			OnEnterScript: onEnter,
			Content:       content,
			Choices:       choices,
		}
	}

	if story.StartPassageID == "" {
		return nil, fmt.Errorf("%w: start_passage_id is required", werrors.ErrValidation)
	}
	if _, ok := story.Passages[story.StartPassageID]; !ok {
		return nil, fmt.Errorf("%w: start_passage_id %q not found", werrors.ErrNotFound, story.StartPassageID)
	}

	return story, nil
}

// Export serializes story as an Ink-like JSON document.
func (InkJSON) Export(story *runtime.Story) (string, error) {
	doc := jsonStoryDoc{
		StoryID:        story.ID,
		StartPassageID: story.StartPassageID,
		Passages:       map[string]jsonPassage{},
	}
	if len(story.Metadata) > 0 {
		doc.Metadata = map[string]any{}
		for k, n := range story.Metadata {
			v, err := nodeToAny(n)
			if err != nil {
				return "", err
			}
			doc.Metadata[k] = v
		}
	}

	for name, p := range story.Passages {
		onEnter, err := nodesToAny(p.OnEnterScript)
		if err != nil {
			return "", err
		}
		content, err := nodesToAny(p.Content)
		if err != nil {
			return "", err
		}
		choices := make([]jsonChoice, len(p.Choices))
		for i, c := range p.Choices {
			text, err := nodesToAny(c.Text)
			if err != nil {
				return "", err
			}
			cond, err := nodeToAny(c.Condition)
			if err != nil {
				return "", err
			}
			action, err := nodesToAny(c.Action)
			if err != nil {
				return "", err
			}
			choices[i] = jsonChoice{
				Text:            text,
				Condition:       cond,
				Action:          action,
				TargetPassageID: c.TargetPassageID,
				Sticky:          c.Sticky,
				Once:            c.Once,
				Fallback:        c.Fallback,
				Tags:            c.Tags,
			}
		}
		doc.Passages[name] = jsonPassage{
			Tags:          p.Tags,
			OnEnterScript: onEnter,
			Content:       content,
			Choices:       choices,
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
