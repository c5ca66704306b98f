package agent

import "github.com/fwojciec/converse"

// Event is a sealed interface for notifications emitted while a turn runs.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventStateChange reports a state machine transition.
type EventStateChange struct {
	From State
	To   State
}

func (EventStateChange) event() {}

// EventEntry reports an entry appended to the session store. Interactive
// front ends use these to narrate tool activity as it happens.
type EventEntry struct {
	Entry converse.Entry
}

func (EventEntry) event() {}

// Interface compliance checks.
var (
	_ Event = EventStateChange{}
	_ Event = EventEntry{}
)
