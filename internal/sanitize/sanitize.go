// Package sanitize cleans the rich-paste HTML preview stored on text snippets.
//
// The preview is a snapshot of whatever the user copied from a web page, so it
// is untrusted. It is only ever rendered as a preview, never executed, and we
// keep it that way by stripping scripts, frames, event handlers and anything
// else outside bluemonday's user-generated-content policy before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is safe for concurrent use once built.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// Pasted code blocks carry their highlighting in class names.
	p.AllowAttrs("class").Globally()
	return p
}

// HTML returns a sanitized copy of html. Empty or whitespace-only input
// returns "".
func HTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	return policy.Sanitize(html)
}
