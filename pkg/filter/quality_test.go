package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

func validArticle() domain.Article {
	return domain.Article{
		ID:       "q123",
		Title:    "Quantum mechanics",
		Excerpt:  strings.Repeat("Quantum mechanics is a fundamental theory. ", 5),
		ImageURL: "https://upload.example.org/qm.jpg",
		Language: "en",
		URL:      "https://en.wikipedia.org/wiki/Quantum_mechanics",
	}
}

func TestIsAcceptable(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.Article)
		want   bool
	}{
		{"valid article", func(a *domain.Article) {}, true},
		{"short excerpt", func(a *domain.Article) { a.Excerpt = strings.Repeat("x", 50) }, false},
		{"excerpt exactly at threshold", func(a *domain.Article) { a.Excerpt = strings.Repeat("x", MinExcerptLength) }, true},
		{"empty excerpt", func(a *domain.Article) { a.Excerpt = "" }, false},
		{"empty title", func(a *domain.Article) { a.Title = "" }, false},
		{"whitespace title", func(a *domain.Article) { a.Title = "   " }, false},
		{"disambiguation page", func(a *domain.Article) { a.Title = "Mercury (disambiguation)" }, false},
		{"list page", func(a *domain.Article) { a.Title = "List of sovereign states" }, false},
		{"stub page", func(a *domain.Article) { a.Title = "Some stub article" }, false},
		{"file page", func(a *domain.Article) { a.Title = "File:Example.jpg" }, false},
		{"template page", func(a *domain.Article) { a.Title = "Template:Infobox" }, false},
		{"no image is fine for the feed", func(a *domain.Article) { a.ImageURL = ""; a.Thumbnail = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.modify(&a)
			assert.Equal(t, tt.want, IsAcceptable(a))
		})
	}
}

func TestIsAcceptable_Pure(t *testing.T) {
	// same input always yields same output
	a := validArticle()
	first := IsAcceptable(a)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, IsAcceptable(a))
	}
}

func TestIsRecommendable(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.Article)
		want   bool
	}{
		{"valid candidate", func(a *domain.Article) {}, true},
		{"no image", func(a *domain.Article) { a.ImageURL = ""; a.Thumbnail = "" }, false},
		{"thumbnail only is enough", func(a *domain.Article) { a.ImageURL = ""; a.Thumbnail = "https://t.example.org/1.jpg" }, true},
		{"colon in title", func(a *domain.Article) { a.Title = "History: an overview" }, false},
		{"list page", func(a *domain.Article) { a.Title = "List of rivers" }, false},
		{"leading digit", func(a *domain.Article) { a.Title = "2024 Summer Olympics" }, false},
		{"short excerpt", func(a *domain.Article) { a.Excerpt = "too short" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.modify(&a)
			assert.Equal(t, tt.want, IsRecommendable(a))
		})
	}
}
