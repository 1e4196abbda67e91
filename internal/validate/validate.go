// Package validate holds the acceptance gates for extracted field
// candidates. Extractors consult these before falling through to the next
// heuristic; the reconciler consults them once more before persisting.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var invalidBrands = map[string]struct{}{
	"http": {}, "https": {}, "www": {}, "error": {},
	"n/a": {}, "none": {}, "unknown": {},
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var nonPriceCharRe = regexp.MustCompile(`[^0-9.]`)

// Title reports whether s is a plausible product title: at least 3
// characters and not an URL or error placeholder.
func Title(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return false
	}
	lower := strings.ToLower(s)
	for _, prefix := range []string{"http", "www", "error"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// Brand reports whether s is a plausible brand name.
func Brand(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	_, blocked := invalidBrands[strings.ToLower(s)]
	return !blocked
}

// Price reports whether p is an acceptable price. A nil price is valid:
// absence of a price is a legitimate scrape outcome.
func Price(p *float64) bool {
	if p == nil {
		return true
	}
	return *p >= 0 && *p < 100000
}

// SKU reports whether s can serve as a natural key.
func SKU(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, prefix := range []string{"http", "error", "n/a"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// ImageURL reports whether u is an absolute http(s) URL with a recognized
// image extension somewhere in it (query-string suffixes are common).
func ImageURL(u string) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	lower := strings.ToLower(u)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// ParsePrice strips every character except digits and dots from a price
// string and parses what remains. Text mixing other numbers into the price
// ("Save 20% ... $1,299.99") concatenates into an unparseable or
// out-of-range value and is rejected instead of misread, letting the caller
// fall through to a stricter extraction strategy.
func ParsePrice(text string) (*float64, bool) {
	cleaned := nonPriceCharRe.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false
	}
	if !Price(&v) {
		return nil, false
	}
	return &v, true
}
