// Package replies suggests short canned answers to the last message of a
// conversation.
package replies

import (
	"regexp"
	"strings"
)

// MaxSuggestions is how many replies are offered at once.
const MaxSuggestions = 4

// Rule pairs a predicate over lower-cased text with its replies.
// Rules are evaluated in order and the first match wins.
type Rule struct {
	Name    string
	Match   func(text string) bool
	Replies []string
	// Rules refines a match; the first matching sub-rule replaces Replies.
	Rules []Rule
}

func pattern(expr string) func(string) bool {
	return regexp.MustCompile(expr).MatchString
}

var Default = []string{
	"Thanks for sharing!",
	"Interesting point!",
	"I'll get back to you on that",
	"Let me think about it",
	"Can we discuss this later?",
}

var Rules = []Rule{
	{
		Name:    "greeting",
		Match:   pattern(`^(hi|hello|hey|greetings|sup|what's up)`),
		Replies: []string{"Hi there!", "Hello!", "Hey!", "How are you?"},
	},
	{
		Name:    "question",
		Match:   pattern(`\?$`),
		Replies: []string{"Good question", "I'm not sure", "Let me think about that"},
		Rules: []Rule{
			{
				Name:    "wellbeing",
				Match:   pattern(`how are you|how's it going`),
				Replies: []string{"I'm good, thanks!", "Doing well!", "Great, how about you?"},
			},
			{
				Name:    "time",
				Match:   pattern(`when|what time|what day`),
				Replies: []string{"Let me check...", "I'm not sure", "Can we schedule that?"},
			},
			{
				Name:    "place",
				Match:   pattern(`where`),
				Replies: []string{"Not sure about the location", "I'll find out", "Can you share the location?"},
			},
		},
	},
	{
		Name:    "positive",
		Match:   pattern(`good|great|awesome|nice|perfect|excellent`),
		Replies: []string{"That's great!", "Awesome!", "Glad to hear that!"},
	},
	{
		Name:    "negative",
		Match:   pattern(`bad|terrible|sucks|awful|not good`),
		Replies: []string{"Sorry to hear that", "That's tough", "Can I help with anything?"},
	},
	{
		Name:    "proposal",
		Match:   pattern(`let's|we should|how about|what about`),
		Replies: []string{"Sounds good!", "Great idea!", "I'm in!"},
	},
}

func match(rules []Rule, text string) ([]string, bool) {
	for _, r := range rules {
		if !r.Match(text) {
			continue
		}
		if sub, ok := match(r.Rules, text); ok {
			return sub, true
		}
		return r.Replies, true
	}
	return nil, false
}

// Suggest returns the reply set of the first rule matching text.
func Suggest(text string) []string {
	lower := strings.ToLower(text)
	if replies, ok := match(Rules, lower); ok {
		return append([]string(nil), replies...)
	}
	return append([]string(nil), Default...)
}

// ForMessage returns what should be shown for the last message: the
// suggested set without entries equal to the message itself, capped at
// MaxSuggestions.
func ForMessage(text string) []string {
	out := make([]string, 0, MaxSuggestions)
	for _, r := range Suggest(text) {
		if strings.EqualFold(r, text) {
			continue
		}
		out = append(out, r)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
