package database

import (
	"regexp"
	"strings"
)

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify joins parts into a lowercase hyphenated slug. Runs of anything
// that is not a letter or digit collapse to a single hyphen.
func Slugify(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, " "))
	joined = slugStripRe.ReplaceAllString(joined, "-")
	return strings.Trim(joined, "-")
}
