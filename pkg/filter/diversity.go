package filter

import (
	"strings"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// DiversityWindow is how many recently accepted articles a candidate is
// compared against
const DiversityWindow = 5

// IsDiverse reports whether a candidate is sufficiently different from the
// tail of the existing list. A candidate is rejected when any article in the
// window shares its id or case-insensitive title.
func IsDiverse(candidate domain.Article, existing []domain.Article) bool {
	window := existing
	if len(window) > DiversityWindow {
		window = window[len(window)-DiversityWindow:]
	}
	for _, a := range window {
		if a.ID == candidate.ID {
			return false
		}
		if strings.EqualFold(a.Title, candidate.Title) {
			return false
		}
	}
	return true
}
