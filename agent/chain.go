package agent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fwojciec/converse"
)

// ChainRule derives a follow-up invocation from a successful tool result.
type ChainRule struct {
	// Extract inspects the result text and reports the follow-up, if any.
	Extract func(text string) (converse.Invocation, bool)
	// Announce returns the model-role narration for a synthesized follow-up.
	Announce func(inv converse.Invocation) string
	// Miss, when non-empty, is narrated if no rule for the tool matched.
	Miss string
}

// Trigger holds chain rules keyed by the name of the tool that completed.
type Trigger struct {
	rules map[string][]ChainRule
}

// NewTrigger returns a trigger with no rules.
func NewTrigger() *Trigger {
	return &Trigger{rules: make(map[string][]ChainRule)}
}

// DefaultTrigger returns a trigger that follows getMyTweets with
// getTweetAnalytics.
func DefaultTrigger() *Trigger {
	return NewTrigger().With("getMyTweets", TweetAnalyticsChain())
}

// With returns a copy of the trigger with r appended to the rules for name.
// Rules for the same tool are tried in the order they were added.
func (t *Trigger) With(name string, r ChainRule) *Trigger {
	rules := maps.Clone(t.rules)
	if rules == nil {
		rules = make(map[string][]ChainRule)
	}
	rules[name] = append(slices.Clone(rules[name]), r)
	return &Trigger{rules: rules}
}

// Next returns at most one synthesized invocation for the outcome of name,
// together with the entries narrating the decision. Only successful outcomes
// are inspected.
func (t *Trigger) Next(name string, o converse.Outcome) (*converse.Invocation, []converse.Entry) {
	rules := t.rules[name]
	if len(rules) == 0 || o.Kind != converse.OutcomeSuccess {
		return nil, nil
	}
	for _, r := range rules {
		inv, ok := r.Extract(o.Text)
		if !ok {
			continue
		}
		inv.Synthetic = true
		var entries []converse.Entry
		if r.Announce != nil {
			entries = append(entries, model(r.Announce(inv)))
		}
		return &inv, entries
	}
	for _, r := range rules {
		if r.Miss != "" {
			return nil, []converse.Entry{model(r.Miss)}
		}
	}
	return nil, nil
}

// TweetAnalyticsChain extracts the first tweet identifier from a tweet
// listing and requests its analytics.
func TweetAnalyticsChain() ChainRule {
	return ChainRule{
		Extract: func(text string) (converse.Invocation, bool) {
			id, ok := converse.ParseTweetID(text)
			if !ok {
				return converse.Invocation{}, false
			}
			return converse.Invocation{
				Name: "getTweetAnalytics",
				Args: map[string]any{"tweet_id": id},
			}, true
		},
		Announce: func(inv converse.Invocation) string {
			return fmt.Sprintf("Found tweet ID: %v. Fetching analytics now...", inv.Args["tweet_id"])
		},
		Miss: "I could not find any valid Tweet ID in your recent posts.",
	}
}
