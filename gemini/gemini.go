// Package gemini implements [converse.ModelGateway] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between the
// conversation log and the Gemini content types. Tool notices are sent as
// user-role text, and thought parts in responses are dropped.
package gemini

const (
	defaultModel     = "gemini-2.0-flash-001"
	defaultMaxTokens = 8192
)
