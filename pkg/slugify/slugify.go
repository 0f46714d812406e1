// Package slugify generates URL-friendly identifiers from display names.
package slugify

import (
	"regexp"
	"strings"
)

var nonAlphanum = regexp.MustCompile(`[^a-z0-9]+`)

// Make creates a lowercase hyphenated slug from the given name.
//
// Examples:
//   - "Summer Collection" → "summer-collection"
//   - "Hand-Painted  Décor!" → "hand-painted-d-cor"
func Make(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphanum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
