package transport

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRE = regexp.MustCompile(`<[^>]+>`)

// StripHTML flattens status HTML into plain text suitable for command
// matching. Tags become spaces so adjacent words don't merge, and entities
// (&amp;, &#39;, ...) are decoded.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTagRE.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
