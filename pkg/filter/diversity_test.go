package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

func TestIsDiverse(t *testing.T) {
	existing := []domain.Article{
		{ID: "a1", Title: "Alpha"},
		{ID: "a2", Title: "Beta"},
		{ID: "a3", Title: "Gamma"},
		{ID: "a4", Title: "Delta"},
		{ID: "a5", Title: "Epsilon"},
		{ID: "a6", Title: "Zeta"},
	}

	t.Run("new article passes", func(t *testing.T) {
		assert.True(t, IsDiverse(domain.Article{ID: "a9", Title: "Eta"}, existing))
	})

	t.Run("duplicate id in window rejected", func(t *testing.T) {
		assert.False(t, IsDiverse(domain.Article{ID: "a6", Title: "Other"}, existing))
	})

	t.Run("duplicate title case-insensitive rejected", func(t *testing.T) {
		assert.False(t, IsDiverse(domain.Article{ID: "a9", Title: "ZETA"}, existing))
	})

	t.Run("duplicate outside window passes", func(t *testing.T) {
		// a1 was pushed out of the 5-item window by a2..a6
		assert.True(t, IsDiverse(domain.Article{ID: "a1", Title: "Alpha"}, existing))
	})

	t.Run("empty list accepts anything", func(t *testing.T) {
		assert.True(t, IsDiverse(domain.Article{ID: "a1", Title: "Alpha"}, nil))
	})

	t.Run("window smaller than five", func(t *testing.T) {
		short := existing[:2]
		assert.False(t, IsDiverse(domain.Article{ID: "a1", Title: "Other"}, short))
		assert.True(t, IsDiverse(domain.Article{ID: "a7", Title: "Theta"}, short))
	})
}
