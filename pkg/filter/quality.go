package filter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// MinExcerptLength is the shortest excerpt considered readable
const MinExcerptLength = 100

// title patterns that mark service pages rather than real articles
var badTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(disambiguation\)`),
	regexp.MustCompile(`(?i)^list of\b`),
	regexp.MustCompile(`(?i)^lists of\b`),
	regexp.MustCompile(`(?i)\bstub\b`),
	regexp.MustCompile(`(?i)^file:`),
	regexp.MustCompile(`(?i)^template:`),
	regexp.MustCompile(`(?i)^category:`),
	regexp.MustCompile(`(?i)^portal:`),
	regexp.MustCompile(`(?i)^draft:`),
}

// IsAcceptable reports whether an article is good enough for the main feed.
// Pure predicate, no side effects.
func IsAcceptable(a domain.Article) bool {
	if len(a.Excerpt) < MinExcerptLength {
		return false
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return false
	}
	for _, re := range badTitlePatterns {
		if re.MatchString(title) {
			return false
		}
	}
	return true
}

// IsRecommendable applies the stricter validity check used for recommendation
// candidates: everything IsAcceptable requires, plus an image, no colon in the
// title, no "List of..." pages and no leading digit.
func IsRecommendable(a domain.Article) bool {
	if !IsAcceptable(a) {
		return false
	}
	if !a.HasImage() {
		return false
	}
	title := strings.TrimSpace(a.Title)
	if strings.Contains(title, ":") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(title), "list of") {
		return false
	}
	runes := []rune(title)
	if len(runes) > 0 && unicode.IsDigit(runes[0]) {
		return false
	}
	return true
}
