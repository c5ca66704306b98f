package converse

import "strings"

// ExitCommand is the input that ends a session.
const ExitCommand = "exit"

// IsExit reports whether input is the exit sentinel, ignoring case and
// surrounding whitespace.
func IsExit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), ExitCommand)
}
