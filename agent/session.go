package agent

import (
	"sync"
	"sync/atomic"

	"github.com/fwojciec/converse"
)

// State is a position in the orchestration state machine.
type State int32

const (
	StateAwaitingUserInput State = iota
	StateAwaitingModelResponse
	StateDispatchingTool
	StateEmittingText
	StateTerminated
)

var stateNames = [...]string{
	StateAwaitingUserInput:     "awaiting_user_input",
	StateAwaitingModelResponse: "awaiting_model_response",
	StateDispatchingTool:       "dispatching_tool",
	StateEmittingText:          "emitting_text",
	StateTerminated:            "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Session is one conversation: its own store, its own catalog snapshot, and
// the invocations still waiting to be dispatched. Sessions share nothing
// mutable with each other.
type Session struct {
	ID      string
	Store   *converse.Store
	Catalog *converse.Catalog

	// mu serializes turns on this session.
	mu    sync.Mutex
	state atomic.Int32
	queue []converse.Invocation
}

// NewSession creates a session in StateAwaitingUserInput. Seed entries (for
// example a priming preamble) are appended to the store in order.
func NewSession(id string, catalog *converse.Catalog, seed ...converse.Entry) *Session {
	return &Session{
		ID:      id,
		Store:   converse.NewStore(seed...),
		Catalog: catalog,
	}
}

// State returns the session's current state. Safe to call while a turn runs.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Pending returns the number of invocations queued for dispatch. It blocks
// while a turn is running.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Session) push(inv converse.Invocation) {
	s.queue = append(s.queue, inv)
}

func (s *Session) pop() (converse.Invocation, bool) {
	if len(s.queue) == 0 {
		return converse.Invocation{}, false
	}
	inv := s.queue[0]
	s.queue = s.queue[1:]
	return inv, true
}
