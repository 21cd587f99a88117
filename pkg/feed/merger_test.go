package feed

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

func feedArticle(id, title string) domain.Article {
	return domain.Article{
		ID:       id,
		Title:    title,
		Excerpt:  strings.Repeat("Chronological feed article with a long enough excerpt. ", 3),
		ImageURL: "https://upload.example.org/" + id + ".jpg",
		Language: "en",
	}
}

func recommendation(id, title string) domain.Recommendation {
	a := feedArticle(id, title)
	a.Score = 0.9
	a.IsRecommendation = true
	return domain.Recommendation{ArticleID: id, Score: 0.9, Article: a}
}

func TestMerger_ShouldInsertRecommendation(t *testing.T) {
	m := NewMerger(Config{})

	tests := []struct {
		index int
		want  bool
	}{
		{0, false}, // position zero never gets a slot
		{1, false},
		{2, false},
		{3, true},
		{4, false},
		{6, true},
		{9, true},
		{10, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("index %d", tt.index), func(t *testing.T) {
			assert.Equal(t, tt.want, m.ShouldInsertRecommendation(tt.index))
		})
	}
}

func TestMerger_ShouldShowAd(t *testing.T) {
	m := NewMerger(Config{})

	tests := []struct {
		index int
		want  bool
	}{
		{0, false},
		{29, false},
		{30, true},
		{31, false},
		{79, false},
		{80, true},
		{130, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("index %d", tt.index), func(t *testing.T) {
			assert.Equal(t, tt.want, m.ShouldShowAd(tt.index))
		})
	}
}

func TestMerger_Merge(t *testing.T) {
	m := NewMerger(Config{})

	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("a4", "Delta"),
		feedArticle("a5", "Epsilon"),
		feedArticle("a6", "Zeta"),
	}
	recs := []domain.Recommendation{
		recommendation("r1", "First pick"),
		recommendation("r2", "Second pick"),
	}

	merged := m.Merge(articles, recs)
	require.Len(t, merged, 8)

	var ids []string
	for _, a := range merged {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "r1", "a4", "a5", "r2", "a6"}, ids)
	assert.True(t, merged[3].IsRecommendation)
	assert.False(t, merged[0].IsRecommendation)
}

func TestMerger_Merge_SkipsInvalidCandidates(t *testing.T) {
	m := NewMerger(Config{})

	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("a4", "Delta"),
	}
	noImage := recommendation("r1", "No picture here")
	noImage.Article.ImageURL = ""
	recs := []domain.Recommendation{
		noImage,
		recommendation("r2", "Good pick"),
	}

	merged := m.Merge(articles, recs)
	require.Len(t, merged, 5)
	assert.Equal(t, "r2", merged[3].ID, "invalid candidate is skipped, next ranked one fills the slot")
}

func TestMerger_Merge_SlotLeftEmptyWhenExhausted(t *testing.T) {
	m := NewMerger(Config{})

	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("a4", "Delta"),
	}
	bad := recommendation("r1", "List of things") // fails the validity check
	recs := []domain.Recommendation{bad}

	merged := m.Merge(articles, recs)
	assert.Len(t, merged, 4, "no force-insert when no candidate passes")
}

func TestMerger_Merge_DiversityAgainstFeedWindow(t *testing.T) {
	m := NewMerger(Config{})

	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("a4", "Delta"),
	}
	dup := recommendation("r1", "beta") // case-insensitive title clash with a2
	recs := []domain.Recommendation{
		dup,
		recommendation("r2", "Fresh pick"),
	}

	merged := m.Merge(articles, recs)
	require.Len(t, merged, 5)
	assert.Equal(t, "r2", merged[3].ID)
}

func TestMerger_Merge_NoAdjacentDuplicateAhead(t *testing.T) {
	m := NewMerger(Config{})

	// "x" is both buffered chronologically and recommended, right at the
	// slot boundary
	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("x", "Crossover"),
		feedArticle("a5", "Epsilon"),
	}
	recs := []domain.Recommendation{
		recommendation("x", "Crossover"),
		recommendation("r2", "Fresh pick"),
	}

	merged := m.Merge(articles, recs)
	require.Len(t, merged, 6)

	var ids []string
	for _, a := range merged {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "r2", "x", "a5"}, ids)
	for i := 1; i < len(merged); i++ {
		assert.NotEqual(t, merged[i-1].ID, merged[i].ID, "consecutive entries at %d and %d", i-1, i)
	}
}

func TestMerger_Merge_TitleClashWithUpcomingArticle(t *testing.T) {
	m := NewMerger(Config{})

	articles := []domain.Article{
		feedArticle("a1", "Alpha"),
		feedArticle("a2", "Beta"),
		feedArticle("a3", "Gamma"),
		feedArticle("a4", "Delta"),
	}
	// distinct id but case-insensitive title clash with a4
	recs := []domain.Recommendation{recommendation("r1", "delta")}

	merged := m.Merge(articles, recs)
	assert.Len(t, merged, 4, "slot stays empty rather than placing a title twin next to it")
}

func TestMerger_Merge_NoRecommendations(t *testing.T) {
	m := NewMerger(Config{})
	articles := []domain.Article{feedArticle("a1", "Alpha")}

	merged := m.Merge(articles, nil)
	assert.Equal(t, articles, merged)
}
