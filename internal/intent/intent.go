// Package intent maps a caller's first utterance to a coarse intent label.
package intent

import (
	"strings"
	"unicode"
)

type Intent string

const (
	Appointment Intent = "appointment"
	Hours       Intent = "hours"
	Pricing     Intent = "pricing"
	Message     Intent = "message"
	General     Intent = "general"
)

// rule order is the tie-break order when an utterance matches several intents.
var rules = []struct {
	intent   Intent
	keywords []string
}{
	{Appointment, []string{"appointment", "book", "schedul", "reserv"}},
	{Hours, []string{"hour", "open", "clos", "what time"}},
	{Pricing, []string{"price", "pricing", "cost", "how much", "rate", "fee"}},
	{Message, []string{"human", "agent", "representative", "operator", "call me back", "callback", "speak to", "message"}},
}

// Classify is deterministic and total: every input yields exactly one label.
// Keywords match at the start of a word, case-insensitively, so plurals and
// inflections ("appointments", "booked", "prices") match but "reopened" is
// not "open".
func Classify(utterance string) Intent {
	text := " " + normalize(utterance)
	if strings.TrimSpace(text) == "" {
		return General
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, " "+kw) {
				return r.intent
			}
		}
	}
	return General
}

// normalize lowercases, turns punctuation into spaces and collapses runs of
// whitespace.
func normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
