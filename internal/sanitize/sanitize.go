// Package sanitize cleans user-supplied text before it is stored. Uses
// bluemonday's strict policy, which removes every tag, so stored display
// names are plain text no matter where they are later rendered.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared strict policy, initialized once on first use.
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

// maxPasses bounds how many layers of entity encoding PlainText peels.
const maxPasses = 8

// PlainText strips all HTML from input and trims surrounding whitespace.
// bluemonday escapes the text it keeps, so the result is unescaped again:
// "Tom & Jerry" stays "Tom & Jerry", "<b>Ann</b>" becomes "Ann". Unescaping
// can reveal entity-encoded markup, so the pass repeats until the text stops
// changing. Input still changing after maxPasses has its angle brackets
// removed.
func PlainText(input string) string {
	if input == "" {
		return ""
	}

	text := input
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(getPolicy().Sanitize(text))
		if next == text {
			return strings.TrimSpace(text)
		}
		text = next
	}
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(text))
}
