package validator

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]+`)
	slugSeparators   = regexp.MustCompile(`[\s-]+`)

	strictPolicy = bluemonday.StrictPolicy()
)

// Slugify derives a URL slug from a display name: "Balme Library" -> "balme-library"
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// StripHTML removes all markup from user-supplied free text
func StripHTML(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
