package kernel

// Event names for the core-emitted event taxonomy (spec §6.3). The bus
// itself is string-keyed (plugins need that), but the core always emits
// through these typed constants so a typo can't silently create a dead
// event name.
const (
	EventStoryLoaded      = "story:loaded"
	EventStoryStarted     = "story:started"
	EventStoryContinued   = "story:continued"
	EventStoryEnded       = "story:ended"
	EventStoryReset       = "story:reset"
	EventPassageEntered   = "passage:entered"
	EventPassageExited    = "passage:exited"
	EventChoicesAvailable = "choices:available"
	EventChoiceMade       = "choice:made"
	EventVariableChanged  = "variable:changed"
	EventStateRestored    = "state:restored"
)
