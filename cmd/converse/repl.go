package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
)

// repl runs the line-mode chat. Every model and tool notice entry is printed
// as it is appended, so the final answer arrives through the same path as
// the narration. It returns nil on exit or end of input.
func repl(ctx context.Context, loop *agent.Loop, sess *agent.Session, in io.Reader, out io.Writer) error {
	narrate := agent.WithEventHandler(func(e agent.Event) {
		ev, ok := e.(agent.EventEntry)
		if !ok {
			return
		}
		switch ev.Entry.Role {
		case converse.RoleModel:
			fmt.Fprintf(out, "AI: %s\n", ev.Entry.Text())
		case converse.RoleToolNotice:
			fmt.Fprintf(out, "    %s\n", ev.Entry.Text())
		}
	})

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		_, err := loop.Run(ctx, sess, line, narrate)
		switch {
		case err == nil:
		case errors.Is(err, converse.ErrTerminated):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
