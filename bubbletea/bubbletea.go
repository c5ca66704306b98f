// Package bubbletea provides a Bubble Tea chat TUI for a converse session.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse/agent"
)

// TurnFunc runs one conversation turn for input. onEvent is called for every
// state change and appended entry. It blocks until the turn completes or ctx
// is cancelled.
type TurnFunc func(ctx context.Context, input string, onEvent func(agent.Event)) (string, error)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits; cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// EventMsg delivers a loop event to the model.
type EventMsg struct {
	Event agent.Event
}

// TurnDoneMsg signals that a turn has completed.
type TurnDoneMsg struct {
	Text string
	Err  error
}
