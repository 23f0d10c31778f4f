package runtime

import "github.com/weave-lang/weave/pkg/state"

// Event payloads for the taxonomy in kernel/events.go (spec §6.3). The
// bus itself carries `any`; these are the concrete shapes the runtime
// emits, which a host or plugin type-asserts after subscribing.

type StoryLoadedPayload struct {
	StoryID string
}

type StoryStartedPayload struct {
	StoryID        string
	StartPassageID string
}

type StoryContinuedPayload struct {
	Text string
	Tags []string
}

type StoryEndedPayload struct {
	PassageID string
}

type StoryResetPayload struct {
	StoryID string
}

type PassageEnteredPayload struct {
	PassageID string
	Tags      []string
}

type PassageExitedPayload struct {
	PassageID string
}

type ChoicesAvailablePayload struct {
	PassageID string
	Count     int
}

type ChoiceMadePayload struct {
	PassageID string
	Index     int
	Text      string
	Target    string
	Automatic bool
}

type VariableChangedPayload struct {
	Name     string
	OldValue state.Value
	NewValue state.Value
}

type StateRestoredPayload struct {
	StoryID string
}
