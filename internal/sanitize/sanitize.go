// Package sanitize strips markup from user-supplied profile text. Display
// names end up in the SPA and in admin listings, so they are reduced to
// plain text before they are stored.
package sanitize

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy: every tag is removed.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// maxPasses bounds how many layers of entity encoding PlainText peels off.
const maxPasses = 4

// PlainText removes all HTML from input, including markup hidden behind
// entity encoding, drops control characters, and collapses runs of
// whitespace. The result contains no tags and PlainText(PlainText(s)) ==
// PlainText(s).
func PlainText(input string) string {
	out := input
	for i := 0; i < maxPasses; i++ {
		next := clean(out)
		if next == out {
			return out
		}
		out = next
	}
	// Pathologically deep encoding: drop anything that could still open a tag.
	return strings.NewReplacer("<", "", ">", "").Replace(out)
}

// clean is one pass: decode entities so encoded tags become real tags,
// strip every tag, then decode the escapes bluemonday adds to plain text.
func clean(s string) string {
	if s == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(html.UnescapeString(s)))

	stripped = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, stripped)

	return strings.Join(strings.Fields(stripped), " ")
}
