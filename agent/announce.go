package agent

import "fmt"

// Announcements maps tool names to the narration appended before the tool
// runs. Tools without a row are announced generically.
type Announcements map[string]string

// DefaultAnnouncements returns narration for the tools the assistant knows.
func DefaultAnnouncements() Announcements {
	return Announcements{
		"findImage":           "Searching for a relevant image...",
		"createPost":          "Creating post with the message and image...",
		"getMyTweets":         "Fetching your recent tweets...",
		"getTweetAnalytics":   "Fetching tweet analytics...",
		"createReadWriteFile": "Working on the file...",
	}
}

// For returns the announcement for the named tool.
func (a Announcements) For(name string) string {
	if text, ok := a[name]; ok {
		return text
	}
	return fmt.Sprintf("Calling tool: %s", name)
}
