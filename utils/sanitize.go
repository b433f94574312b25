package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks, keeping safe formatting.
func Sanitize(input string) string {
	return ugc.Sanitize(input)
}

// SanitizeLine strips all markup from a single-line field such as a title. The result is
// plain text, so the entities the policy emits are decoded again.
func SanitizeLine(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}
