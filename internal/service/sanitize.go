package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeName strips all markup from a user-supplied name and collapses
// whitespace. Entities escaped by the policy are decoded again since templates
// escape on output.
func sanitizeName(s string) string {
	clean := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

func displayName(first, last string) string {
	return strings.TrimSpace(sanitizeName(first) + " " + sanitizeName(last))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
