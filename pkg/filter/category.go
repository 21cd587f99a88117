package filter

import (
	"regexp"
	"strings"
)

// maintenance vocabulary that never describes article topics
var categoryNoiseTokens = []string{"stub", "cs1", "articles", "pages", "wikipedia", "webarchive", "use dmy dates", "use mdy dates"}

var (
	parentheticalRE = regexp.MustCompile(`\s*\([^)]*\)`)
	datedMarkerRE   = regexp.MustCompile(`(?i)\bfrom (january|february|march|april|may|june|july|august|september|october|november|december)? ?\d{4}\b`)
)

// NormalizeCategory strips the Category: prefix, parenthetical qualifiers and
// dated maintenance markers from a raw category name. Returns an empty string
// when nothing meaningful remains.
func NormalizeCategory(raw string) string {
	c := strings.TrimSpace(raw)
	if i := strings.Index(c, ":"); i >= 0 && strings.EqualFold(c[:i], "category") {
		c = c[i+1:]
	}
	c = parentheticalRE.ReplaceAllString(c, "")
	c = datedMarkerRE.ReplaceAllString(c, "")
	return strings.TrimSpace(c)
}

// UsableCategories normalizes raw category names and drops hidden/maintenance
// categories, preserving the original order and removing duplicates.
func UsableCategories(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	for _, r := range raw {
		c := NormalizeCategory(r)
		if c == "" || !usableCategory(c) {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, c)
	}
	return result
}

func usableCategory(c string) bool {
	lower := strings.ToLower(c)
	if strings.Contains(lower, "wikidata") || strings.Contains(lower, "hidden") {
		return false
	}
	for _, tok := range categoryNoiseTokens {
		if strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}
