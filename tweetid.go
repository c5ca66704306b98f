package converse

import "regexp"

// tweetIDPattern is the literal label "ID: " followed by a run of at least
// five ASCII digits. The run is maximal: every following digit is included.
var tweetIDPattern = regexp.MustCompile(`ID: ([0-9]{5,})`)

// ParseTweetID returns the digits of the first "ID: <digits>" occurrence in
// text.
func ParseTweetID(text string) (string, bool) {
	m := tweetIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
