package converse

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates an invocation or turn failed validation before
	// reaching an external collaborator.
	ErrValidation = errors.New("validation error")

	// ErrToolNotFound indicates the requested tool is absent from the catalog.
	ErrToolNotFound = errors.New("tool not found")

	// ErrTransport indicates a tool call could not be completed, e.g. the tool
	// host was unreachable or the call deadline expired.
	ErrTransport = errors.New("transport error")

	// ErrConnectivity indicates the model gateway could not be reached.
	ErrConnectivity = errors.New("connectivity error")

	// ErrMalformedTurn indicates the model returned a turn that is neither a
	// single text answer nor a single function call.
	ErrMalformedTurn = errors.New("malformed turn")

	// ErrTerminated indicates the session received the exit sentinel.
	ErrTerminated = errors.New("session terminated")
)
